package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"energy-tariffs/internal/domain"
)

// ErrRejected is returned when the server answers a frame with an error.
var ErrRejected = errors.New("frame rejected")

// DefaultFrameSize is the number of values SendAll puts in one frame.
const DefaultFrameSize = 500

// ClientConfig configures the feeder client.
type ClientConfig struct {
	// HandshakeTimeout bounds the opening handshake.
	HandshakeTimeout time.Duration
	// WriteTimeout bounds sending one frame.
	WriteTimeout time.Duration
	// ReadTimeout bounds waiting for a reply.
	ReadTimeout time.Duration
	// Token is sent as a bearer token when set.
	Token string
}

// DefaultClientConfig returns default client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      60 * time.Second,
	}
}

// Client pushes values to an ingest endpoint, one frame at a time.
type Client struct {
	config ClientConfig
	conn   *websocket.Conn
	mu     sync.Mutex
	closed atomic.Bool
}

// Dial connects to endpoint. A nil config uses DefaultClientConfig.
func Dial(ctx context.Context, endpoint string, config *ClientConfig) (*Client, error) {
	cfg := DefaultClientConfig()
	if config != nil {
		cfg = *config
	}

	var header http.Header
	if cfg.Token != "" {
		header = http.Header{"Authorization": []string{"Bearer " + cfg.Token}}
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return &Client{config: cfg, conn: conn}, nil
}

// Send writes one frame and waits for its reply.
func (c *Client) Send(ctx context.Context, values []*domain.IndexingValue) (Reply, error) {
	if c.closed.Load() {
		return Reply{}, fmt.Errorf("client closed")
	}

	frame := Frame{Values: make([]Value, len(values))}
	for i, v := range values {
		frame.Values[i] = FromDomain(v)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(deadline(ctx, c.config.WriteTimeout))
	if err := c.conn.WriteJSON(frame); err != nil {
		return Reply{}, fmt.Errorf("write frame: %w", err)
	}

	var reply Reply
	c.conn.SetReadDeadline(deadline(ctx, c.config.ReadTimeout))
	if err := c.conn.ReadJSON(&reply); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	if reply.Error != "" {
		return reply, fmt.Errorf("%w: %s", ErrRejected, reply.Error)
	}
	return reply, nil
}

// SendAll sends values in frames of frameSize and returns the number accepted.
// It stops at the first rejected frame.
func (c *Client) SendAll(ctx context.Context, values []*domain.IndexingValue, frameSize int) (int, error) {
	if frameSize <= 0 {
		frameSize = DefaultFrameSize
	}

	accepted := 0
	for start := 0; start < len(values); start += frameSize {
		if err := ctx.Err(); err != nil {
			return accepted, err
		}
		end := min(start+frameSize, len(values))
		reply, err := c.Send(ctx, values[start:end])
		accepted += reply.Accepted
		if err != nil {
			return accepted, err
		}
	}
	return accepted, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}

func deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}
