package telemetry

import (
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"rddlplanner/internal/search"
)

func TestPublisherSnapshot(t *testing.T) {
	Convey("Given a publisher for a three-action task", t, func() {
		pub := NewPublisher(3)

		Convey("An initial snapshot reads zeroed stats", func() {
			snap := pub.Snapshot()
			So(snap.Rollouts, ShouldEqual, int64(0))
			So(snap.PoolLive, ShouldEqual, int64(0))
			So(snap.RootQHats, ShouldResemble, []float64{0, 0, 0})
		})

		Convey("Publish updates every field atomically", func() {
			now := time.Unix(1000, 0)
			pub.Publish("run-1", search.Stats{
				Rollouts:  42,
				PoolLive:  7,
				RootQHats: []float64{1.5, -2.0, 0.25},
			}, now)

			snap := pub.Snapshot()
			So(snap.RunID, ShouldEqual, "run-1")
			So(snap.Rollouts, ShouldEqual, int64(42))
			So(snap.PoolLive, ShouldEqual, int64(7))
			So(snap.RootQHats, ShouldResemble, []float64{1.5, -2.0, 0.25})
			So(snap.PublishedAt.Equal(now), ShouldBeTrue)
		})

		Convey("A second Publish overwrites rather than accumulates", func() {
			pub.Publish("run-1", search.Stats{Rollouts: 1, PoolLive: 1, RootQHats: []float64{5, 5, 5}}, time.Unix(1, 0))
			pub.Publish("run-1", search.Stats{Rollouts: 2, PoolLive: 2, RootQHats: []float64{1, 1, 1}}, time.Unix(2, 0))
			snap := pub.Snapshot()
			So(snap.RootQHats, ShouldResemble, []float64{1, 1, 1})
		})

		Convey("Concurrent snapshot reads never observe a partially-written Q vector", func() {
			stop := make(chan struct{})
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 200; i++ {
					pub.Publish("run-1", search.Stats{Rollouts: i, PoolLive: i, RootQHats: []float64{float64(i), float64(-i), float64(i) / 2}}, time.Unix(int64(i), 0))
				}
				close(stop)
			}()

			reads := 0
			for {
				select {
				case <-stop:
					wg.Wait()
					So(reads, ShouldBeGreaterThan, 0)
					return
				default:
					snap := pub.Snapshot()
					So(len(snap.RootQHats), ShouldEqual, 3)
					reads++
				}
			}
		})
	})
}
