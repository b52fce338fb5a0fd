package dashboard

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rddlplanner/internal/search"
	"rddlplanner/internal/telemetry"
)

func statsOf(rollouts, poolLive int, qHats []float64) search.Stats {
	return search.Stats{Rollouts: rollouts, PoolLive: poolLive, RootQHats: qHats}
}

func TestMarshalSnapshotRoundTrips(t *testing.T) {
	pub := telemetry.NewPublisher(2)
	pub.Publish("run-1", statsOf(3, 9, []float64{1, 2}), time.Unix(5, 0))
	snap := pub.Snapshot()

	body, err := MarshalSnapshot(snap)
	require.NoError(t, err)

	var decoded telemetry.Snapshot
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Equal(t, "run-1", decoded.RunID)
	require.Equal(t, int64(3), decoded.Rollouts)
	require.Equal(t, int64(9), decoded.PoolLive)
	require.Equal(t, []float64{1, 2}, decoded.RootQHats)
}

func TestIndexTemplateRendersSnapshotFields(t *testing.T) {
	var buf strings.Builder
	pub := telemetry.NewPublisher(1)
	pub.Publish("run-2", statsOf(7, 1, []float64{0.5}), time.Unix(1, 0))

	require.NoError(t, indexTemplate.Execute(&buf, pub.Snapshot()))
	require.Contains(t, buf.String(), "run-2")
	require.Contains(t, buf.String(), "rollouts: 7")
}
