package pushws

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"wcpredict/internal/events"
	"wcpredict/internal/telemetry"
)

const (
	minBackoff  = 1 * time.Second
	maxBackoff  = 30 * time.Second
	readTimeout = 90 * time.Second
)

// TokenSource supplies the bearer credential passed at dial time.
type TokenSource interface {
	Token() string
}

// Archiver persists raw push frames. May be nil.
type Archiver interface {
	ArchivePush(channel string, raw []byte)
}

// Handler receives the body of every message frame on a subscribed destination.
// Handlers must not panic; malformed bodies are their problem to log and drop.
type Handler func(body json.RawMessage)

// Client maintains one push connection and its topic subscriptions.
//
// Two independent instances exist in the daemon: one for the match topics and
// one for the per-user notification queue. They share no state.
//
// Gorilla/websocket supports one concurrent reader and one concurrent writer,
// so all writes are serialized through mu.
type Client struct {
	name    string // "matches" or "notifications", used in logs and status events
	url     string
	tokens  TokenSource
	bus     *events.Bus
	archive Archiver

	mu      sync.Mutex
	conn    *websocket.Conn
	subs    map[string]Handler
	subID   int
	running bool
	cancel  context.CancelFunc
}

func NewClient(name, wsURL string, tokens TokenSource, bus *events.Bus, archive Archiver) *Client {
	return &Client{
		name:    name,
		url:     wsURL,
		tokens:  tokens,
		bus:     bus,
		archive: archive,
		subs:    make(map[string]Handler),
	}
}

// Subscribe registers a handler for a destination topic. Safe to call before
// or after Connect; on reconnect every registered destination is subscribed
// again with a fresh id, so reconnects never duplicate subscriptions. A second
// Subscribe for a known destination replaces the handler without sending
// another subscribe frame.
func (c *Client) Subscribe(destination string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, exists := c.subs[destination]
	c.subs[destination] = h
	if exists {
		return
	}

	if err := c.sendSubscribe(destination); err != nil {
		telemetry.Warnf("pushws[%s]: subscribe %s failed: %v", c.name, destination, err)
	}
}

// Connect starts the connection loop. No-op when already running, and does
// nothing when no bearer credential is available yet.
func (c *Client) Connect(ctx context.Context) {
	if c.tokens == nil || c.tokens.Token() == "" {
		telemetry.Debugf("pushws[%s]: not authenticated, skipping connect", c.name)
		return
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	go c.runLoop(runCtx)
}

// Close tears down the transport and clears subscriptions. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	cancel := c.cancel
	conn := c.conn
	c.cancel = nil
	c.conn = nil
	c.running = false
	c.subs = make(map[string]Handler)
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// runLoop dials, reads until failure, and reconnects with exponential backoff.
func (c *Client) runLoop(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		connStart := time.Now()
		err := c.connectOnce(ctx)
		if ctx.Err() != nil {
			return
		}

		if time.Since(connStart) > time.Minute {
			attempt = 0
		}

		attempt++
		telemetry.Metrics.WSReconnects.Inc()
		backoff := time.Duration(float64(minBackoff) * math.Pow(2, float64(min(attempt-1, 5))))
		if backoff > maxBackoff {
			backoff = maxBackoff
		}

		if err != nil {
			telemetry.Warnf("pushws[%s]: connection lost (attempt %d): %v, retrying in %s",
				c.name, attempt, err, backoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

func (c *Client) connectOnce(ctx context.Context) error {
	header := http.Header{}
	if tok := c.tokens.Token(); tok != "" {
		header.Set("Authorization", "Bearer "+tok)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		conn.Close()
	}()

	telemetry.Infof("pushws[%s]: connected to %s", c.name, c.url)
	c.resubscribeAll()
	c.publishStatus(true)
	defer c.publishStatus(false)

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		if c.archive != nil {
			c.archive.ArchivePush(c.name, raw)
		}
		c.dispatch(raw)
	}
}

// dispatch routes one inbound frame to its destination handler.
// Malformed frames are counted, logged, and dropped.
func (c *Client) dispatch(raw []byte) {
	var frame messageFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		telemetry.Metrics.PushParseErrors.Inc()
		telemetry.Warnf("pushws[%s]: unmarshal frame: %v", c.name, err)
		return
	}
	if frame.Type != frameMessage {
		telemetry.Debugf("pushws[%s]: ignoring frame type %q", c.name, frame.Type)
		return
	}

	c.mu.Lock()
	h := c.subs[frame.Destination]
	c.mu.Unlock()

	if h == nil {
		telemetry.Debugf("pushws[%s]: no handler for destination %q", c.name, frame.Destination)
		return
	}

	telemetry.Metrics.PushEventsReceived.Inc()
	h(frame.Body)
}

// resubscribeAll sends a subscribe for every registered destination.
// Called after each successful connection/reconnection.
func (c *Client) resubscribeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for destination := range c.subs {
		if err := c.sendSubscribe(destination); err != nil {
			telemetry.Warnf("pushws[%s]: resubscribe %s failed: %v", c.name, destination, err)
		}
	}
}

// sendSubscribe writes a subscribe frame. Caller must hold mu.
func (c *Client) sendSubscribe(destination string) error {
	if c.conn == nil {
		return nil
	}
	c.subID++
	telemetry.Debugf("pushws[%s]: subscribing to %s (sid=%d)", c.name, destination, c.subID)
	return c.conn.WriteJSON(subscribeFrame{
		Type:        frameSubscribe,
		ID:          c.subID,
		Destination: destination,
	})
}

func (c *Client) publishStatus(connected bool) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(events.Event{
		Type:      events.EventWSStatus,
		Timestamp: time.Now(),
		Payload:   events.WSStatusEvent{Channel: c.name, Connected: connected},
	})
}
