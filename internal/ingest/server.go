package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/logging"
	"energy-tariffs/internal/observability"
	"energy-tariffs/internal/storage"
)

// Writer stores a batch of values.
type Writer interface {
	PutBatch(ctx context.Context, values []*domain.IndexingValue) (storage.BatchResult, error)
}

// ServerConfig configures the ingest endpoint.
type ServerConfig struct {
	// PingInterval is the interval between server pings.
	PingInterval time.Duration
	// ReadTimeout closes connections silent for longer than this.
	ReadTimeout time.Duration
	// WriteTimeout bounds a single reply.
	WriteTimeout time.Duration
	// MaxFrameBytes bounds one incoming frame.
	MaxFrameBytes int64
	// CheckOrigin overrides the same-origin check. Nil allows every origin.
	CheckOrigin func(r *http.Request) bool
}

// DefaultServerConfig returns default ingest configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		PingInterval:  30 * time.Second,
		ReadTimeout:   90 * time.Second,
		WriteTimeout:  10 * time.Second,
		MaxFrameBytes: 4 << 20,
	}
}

// Server upgrades feeder connections and stores their frames.
type Server struct {
	writer   Writer
	config   ServerConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewServer creates a Server. A nil config uses DefaultServerConfig.
func NewServer(writer Writer, config *ServerConfig, logger *zap.Logger) *Server {
	cfg := DefaultServerConfig()
	if config != nil {
		cfg = *config
	}
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}

	return &Server{
		writer:   writer,
		config:   cfg,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		logger:   logging.OrNop(logger),
	}
}

// ServeHTTP handles one feeder connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	observability.ConnectionOpened()
	defer observability.ConnectionClosed()

	remote := zap.String("remote", r.RemoteAddr)
	s.logger.Info("feeder connected", remote)

	conn.SetReadLimit(s.config.MaxFrameBytes)
	conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go s.pingLoop(conn, done)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("feeder connection lost", remote, zap.Error(err))
			} else {
				s.logger.Info("feeder disconnected", remote)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		reply := s.handleFrame(r.Context(), message)

		conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		if err := conn.WriteJSON(reply); err != nil {
			s.logger.Warn("write reply", remote, zap.Error(err))
			return
		}
	}
}

func (s *Server) handleFrame(ctx context.Context, message []byte) Reply {
	var frame Frame
	if err := json.Unmarshal(message, &frame); err != nil {
		observability.RecordIngestFrame("invalid")
		return Reply{Error: "malformed frame: " + err.Error()}
	}
	values, err := frame.Decode()
	if err != nil {
		observability.RecordIngestFrame("invalid")
		return Reply{Error: err.Error()}
	}
	if len(values) == 0 {
		observability.RecordIngestFrame("accepted")
		return Reply{}
	}

	res, err := s.writer.PutBatch(ctx, values)
	if err != nil {
		observability.RecordIngestFrame("failed")
		s.logger.Warn("frame partially stored",
			zap.Int("written", res.Written),
			zap.Int("unprocessed", len(res.Unprocessed)),
			zap.Error(err),
		)
		return Reply{Accepted: res.Written, Error: err.Error()}
	}

	observability.RecordIngestFrame("accepted")
	return Reply{Accepted: res.Written}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (s *Server) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(s.config.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
