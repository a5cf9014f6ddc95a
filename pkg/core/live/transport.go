package live

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crosstalk-ai/crosstalk/pkg/core"
)

// Transport is the duplex connection a session runs over. Connect may be
// called again after the events channel closes; each successful Connect
// yields a fresh events channel.
type Transport interface {
	// Connect dials the endpoint. Returns a ConnectionError on failure.
	Connect(ctx context.Context) error

	// Send writes one client event. Concurrency-safe.
	Send(event *ClientEvent) error

	// Events returns the inbound event channel for the current connection.
	// The channel closes when the connection drops or Close is called.
	Events() <-chan *ServerEvent

	// Close shuts the connection down gracefully.
	Close() error
}

const (
	writeTimeout = 10 * time.Second
	pingInterval = 20 * time.Second
)

// WSTransport is the gorilla/websocket Transport implementation: one writer
// goroutine discipline via a write mutex, a background read loop feeding the
// events channel, and periodic pings to keep intermediaries from idling the
// connection out.
type WSTransport struct {
	url    string
	header http.Header

	mu     sync.Mutex // guards conn writes and reconnect bookkeeping
	conn   *websocket.Conn
	events chan *ServerEvent
	closed bool
}

var _ Transport = (*WSTransport)(nil)

// NewWSTransport creates a websocket transport for the given URL. The header
// carries auth (e.g. "Authorization: Bearer ...").
func NewWSTransport(url string, header http.Header) *WSTransport {
	return &WSTransport{url: url, header: header}
}

// Connect dials the endpoint and starts the read loop.
func (t *WSTransport) Connect(ctx context.Context) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, t.url, t.header)
	if err != nil {
		if resp != nil {
			return core.NewConnectionError(fmt.Sprintf("websocket dial failed (status %d)", resp.StatusCode), err)
		}
		return core.NewConnectionError("websocket dial failed", err)
	}

	events := make(chan *ServerEvent, 64)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		return core.NewConnectionError("transport is closed", nil)
	}
	t.conn = conn
	t.events = events
	t.mu.Unlock()

	go t.readLoop(conn, events)
	go t.pingLoop(conn)
	return nil
}

// Send writes one client event as a JSON text frame.
func (t *WSTransport) Send(event *ClientEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return core.NewConnectionError("transport is not connected", nil)
	}

	t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := t.conn.WriteJSON(event); err != nil {
		return core.NewConnectionError("write failed", err)
	}
	return nil
}

// Events returns the current connection's inbound channel.
func (t *WSTransport) Events() <-chan *ServerEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.events
}

// Close sends a close frame and tears the connection down.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if t.conn == nil {
		return nil
	}

	deadline := time.Now().Add(2 * time.Second)
	t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *WSTransport) readLoop(conn *websocket.Conn, events chan *ServerEvent) {
	defer close(events)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var event ServerEvent
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}
		events <- &event
	}
}

func (t *WSTransport) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		t.mu.Lock()
		if t.conn != conn {
			t.mu.Unlock()
			return
		}
		err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
		t.mu.Unlock()
		if err != nil {
			return
		}
	}
}
