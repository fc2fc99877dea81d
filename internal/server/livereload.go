package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/fasttify/liquidforge/internal/logging"
)

// LiveReload pushes a reload message to connected browsers when the
// theme watcher reports changed files. Development only.
type LiveReload struct {
	log logging.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

// NewLiveReload creates the reload hub.
func NewLiveReload(log logging.Logger) *LiveReload {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &LiveReload{
		log:   log.WithComponent("livereload"),
		conns: make(map[*websocket.Conn]bool),
	}
}

type reloadMessage struct {
	Type  string   `json:"type"`
	Paths []string `json:"paths,omitempty"`
}

// Handler upgrades the connection and keeps it registered until the
// browser goes away.
func (l *LiveReload) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true, // dev tool, local origins vary
		})
		if err != nil {
			l.log.Warn(r.Context(), err, "websocket accept failed")
			return
		}

		l.mu.Lock()
		l.conns[conn] = true
		l.mu.Unlock()

		defer func() {
			l.mu.Lock()
			delete(l.conns, conn)
			l.mu.Unlock()
			conn.Close(websocket.StatusNormalClosure, "")
		}()

		// Drain client messages; the protocol is push-only.
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				return
			}
		}
	}
}

// Broadcast tells every connected browser to reload.
func (l *LiveReload) Broadcast(ctx context.Context, paths []string) {
	payload, err := json.Marshal(reloadMessage{Type: "reload", Paths: paths})
	if err != nil {
		return
	}

	l.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(l.conns))
	for c := range l.conns {
		conns = append(conns, c)
	}
	l.mu.Unlock()

	for _, conn := range conns {
		writeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := conn.Write(writeCtx, websocket.MessageText, payload); err != nil {
			l.log.Debug(ctx, "dropping stale livereload connection", "error", err.Error())
			conn.Close(websocket.StatusNormalClosure, "")
		}
		cancel()
	}
}

// Watch forwards watcher change batches to connected browsers.
func (l *LiveReload) Watch(ctx context.Context, changes <-chan []string) {
	for {
		select {
		case <-ctx.Done():
			return
		case changed, ok := <-changes:
			if !ok {
				return
			}
			l.Broadcast(ctx, changed)
		}
	}
}

// reloadScript reconnects with a small backoff so the page survives
// server restarts during development.
const reloadScript = `<script>
(function () {
  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/__livereload");
    ws.onmessage = function () { location.reload(); };
    ws.onclose = function () { setTimeout(connect, 1000); };
  }
  connect();
})();
</script>`

// InjectScript adds the reload client to a rendered page.
func InjectScript(page string) string {
	if i := strings.LastIndex(page, "</body>"); i >= 0 {
		return page[:i] + reloadScript + "\n" + page[i:]
	}
	return page + "\n" + reloadScript
}
