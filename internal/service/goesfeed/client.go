package goesfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"FlareScope/internal/domain/models"
	drepo "FlareScope/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// readBuffer bounds the per-session sample channel. Live analysis only needs
// the recent tail, so overflow drops rather than blocks.
const readBuffer = 1024

// Client implements a FluxStream backed by a GOES real-time relay WebSocket.
// Each Read call opens one session bound to the current connection; when the
// connection dies the session reports the error and closes both channels,
// and the caller reconnects and reads again.
type Client struct {
	websocketURL   string
	sources        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// New creates a new GOES flux stream client.
func New(websocketURL string, sources []string, reconnectDelay, pingInterval time.Duration) drepo.FluxStream {
	return &Client{
		websocketURL:   websocketURL,
		sources:        sources,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("goesfeed connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	log.Printf("goesfeed: connected")
	return nil
}

// Subscribe subscribes to the configured satellite sources.
func (c *Client) Subscribe(ctx context.Context) error {
	conn := c.current()
	if conn == nil {
		return fmt.Errorf("goesfeed not connected")
	}
	for _, s := range c.sources {
		msg := map[string]string{"type": "subscribe", "source": s}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
	}
	log.Printf("goesfeed: subscribed %d sources", len(c.sources))
	return nil
}

type feedReading struct {
	Source string  `json:"source"`
	T      int64   `json:"t"`
	Short  float64 `json:"short"`
	Long   float64 `json:"long"`
}

type feedMessage struct {
	Type string        `json:"type"`
	Data []feedReading `json:"data"`
}

// Read opens one read session on the current connection. Both channels close
// when the session ends; a session ends on read error, context cancellation,
// or Close.
func (c *Client) Read(ctx context.Context) (<-chan *models.FluxSample, <-chan error) {
	samples := make(chan *models.FluxSample, readBuffer)
	errs := make(chan error, 1)

	conn := c.current()
	if conn == nil {
		errs <- fmt.Errorf("goesfeed not connected")
		close(samples)
		close(errs)
		return samples, errs
	}

	go c.readSession(ctx, conn, samples, errs)
	return samples, errs
}

func (c *Client) readSession(ctx context.Context, conn *websocket.Conn, samples chan<- *models.FluxSample, errs chan<- error) {
	defer close(samples)
	defer close(errs)

	stopPing := c.keepAlive(ctx, conn)
	defer stopPing()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				errs <- fmt.Errorf("goesfeed read: %w", err)
			}
			return
		}
		for _, s := range decodeFrame(frame) {
			select {
			case samples <- s:
			default:
				// drop on backpressure
			}
		}
	}
}

// keepAlive pings the relay on the configured interval for the lifetime of
// one session. The returned func stops the loop.
func (c *Client) keepAlive(ctx context.Context, conn *websocket.Conn) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			}
		}
	}()
	return func() { close(stop) }
}

// decodeFrame extracts flux samples from one relay frame. Relays push either
// a batched reading envelope or a bare reading object; anything else
// (subscription acks, heartbeats) decodes to nothing.
func decodeFrame(b []byte) []*models.FluxSample {
	var m feedMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}

	readings := m.Data
	switch {
	case m.Type == "reading":
	case m.Type == "" && len(readings) == 0:
		var r feedReading
		if err := json.Unmarshal(b, &r); err != nil || r.Source == "" {
			return nil
		}
		readings = []feedReading{r}
	default:
		return nil
	}

	out := make([]*models.FluxSample, 0, len(readings))
	for _, d := range readings {
		if d.Source == "" || d.T == 0 {
			continue
		}
		out = append(out, &models.FluxSample{
			Source: d.Source,
			Time:   normalizeEpoch(d.T),
			Short:  d.Short,
			Long:   d.Long,
		})
	}
	return out
}

// normalizeEpoch folds millisecond epochs down to seconds; relays disagree
// on the unit.
func normalizeEpoch(t int64) int64 {
	if t > 1_000_000_000_000 {
		return t / 1000
	}
	return t
}

// Reconnect closes the current connection, waits out the redial delay, and
// re-establishes connection plus subscriptions.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	return c.conn
}
