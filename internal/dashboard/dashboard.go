// Package dashboard serves a single live page showing the planner's
// current search statistics: rollout count, node-pool occupancy and
// the root decision's action Q-values, pushed to the browser over a
// websocket. A planning step's published state is a handful of scalars,
// so each push replaces the whole view payload; there is no spatial
// grid here that would justify diffing and patching individual DOM
// elements.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"

	"rddlplanner/internal/telemetry"
)

var upgrader = websocket.Upgrader{}

const (
	writeWait        = 1 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	closeGracePeriod = 10 * time.Second
	publishResolution = 100 * time.Millisecond
)

// Dashboard serves the live view for one Publisher. It supports a
// single concurrently-connected client.
type Dashboard struct {
	addr string
	pub  *telemetry.Publisher
}

// New returns a dashboard bound to addr (e.g. "localhost:8080"),
// reading from pub.
func New(addr string, pub *telemetry.Publisher) *Dashboard {
	return &Dashboard{addr: addr, pub: pub}
}

// Serve runs the HTTP and websocket endpoints until ctx is cancelled
// or a fatal server error occurs. It blocks; call it from a goroutine.
func (d *Dashboard) Serve(ctx context.Context) error {
	router := mux.NewRouter()
	router.HandleFunc("/", d.serveIndex).Methods(http.MethodGet)
	router.HandleFunc("/ws", d.serveWebsocket)

	srv := &http.Server{Addr: d.addr, Handler: router}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("dashboard: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), closeGracePeriod)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

func (d *Dashboard) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if err := indexTemplate.Execute(w, d.pub.Snapshot()); err != nil {
		_, _ = w.Write([]byte(err.Error()))
	}
}

// serveWebsocket pushes telemetry.Snapshot JSON to the client at
// publishResolution, with a ping/pong liveness loop over the gorilla
// websocket connection.
func (d *Dashboard) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		log.Println("dashboard upgrade:", err)
		return
	}
	defer closeWebsocket(ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	pong := make(chan struct{})
	defer close(pong)
	ws.SetPongHandler(func(string) error {
		select {
		case pong <- struct{}{}:
		case <-ctx.Done():
		}
		return nil
	})

	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	ticker := channerics.NewTicker(ctx.Done(), publishResolution)
	pinger := channerics.NewTicker(ctx.Done(), pingPeriod)
	lastPong := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pinger:
			if time.Since(lastPong) > pingPeriod*2 {
				return
			}
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-pong:
			lastPong = time.Now()
		case <-ticker:
			snap := d.pub.Snapshot()
			if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := ws.WriteJSON(snap); err != nil {
				return
			}
		}
	}
}

func closeWebsocket(ws *websocket.Conn) {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	ws.Close()
}

// MarshalSnapshot is exposed for handlers/tests that want the same
// JSON shape the websocket pushes without standing up a connection.
func MarshalSnapshot(s telemetry.Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

var indexTemplate = template.Must(template.New("index").Parse(`
<!DOCTYPE html>
<html>
<head><link rel="icon" href="data:,"></head>
<body>
<h1>search status</h1>
<p>run: {{ .RunID }}</p>
<p>rollouts: {{ .Rollouts }}</p>
<p>pool live: {{ .PoolLive }}</p>
<ul id="qhats">
{{ range $i, $q := .RootQHats }}<li>action {{ $i }}: {{ $q }}</li>{{ end }}
</ul>
<script>
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = function(event) {
	const snap = JSON.parse(event.data);
	document.title = "rollouts=" + snap.Rollouts;
};
</script>
</body>
</html>
`))
