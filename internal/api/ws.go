package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/dipscan/internal/progress"
	"github.com/wonny/dipscan/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// ProgressStream relays pipeline progress events to websocket
// clients. Each connection gets its own bus subscription; slow
// clients miss events rather than slow the pipeline down.
type ProgressStream struct {
	bus      *progress.Bus
	logger   *logger.Logger
	upgrader websocket.Upgrader
}

// NewProgressStream creates a new ProgressStream
func NewProgressStream(bus *progress.Bus, log *logger.Logger) *ProgressStream {
	return &ProgressStream{
		bus:    bus,
		logger: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API serves localhost dashboards, not browsers on
			// other origins
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and streams events until the
// client disconnects.
func (s *ProgressStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, unsubscribe := s.bus.Subscribe()
	defer unsubscribe()

	// Reader goroutine: we never expect client messages, but reading
	// is how close frames and dead peers are detected.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
