package live

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server upgrades viewer HTTP requests to WebSockets.
type Server struct {
	hub      *Hub
	logger   *zap.Logger
	opts     Options
	upgrader websocket.Upgrader
}

// NewServer builds the upgrade handler. An empty allowedOrigins list accepts
// any origin.
func NewServer(hub *Hub, opts Options, allowedOrigins []string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[strings.TrimRight(o, "/")] = struct{}{}
	}
	return &Server{
		hub:    hub,
		logger: logger,
		opts:   opts.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				_, ok := origins[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// HandleWS is HTTP handler for /ws endpoint.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := newConnection(ws, s.hub, s.opts, s.logger)
	if !s.hub.Add(conn) {
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = ws.Close()
		return
	}

	s.logger.Info("viewer connected", zap.String("connection_id", conn.ID()), zap.String("remote", r.RemoteAddr))
	go conn.Run()
}
