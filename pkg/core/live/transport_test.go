package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// echoServer upgrades the connection and answers each client event with a
// scripted server event.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var event ClientEvent
			if err := conn.ReadJSON(&event); err != nil {
				return
			}
			switch event.Type {
			case ClientSessionUpdate:
				conn.WriteJSON(map[string]any{
					"type":    ServerSessionCreated,
					"session": map[string]string{"id": "sess_ws"},
				})
			case ClientResponseCreate:
				conn.WriteJSON(map[string]any{
					"type":     ServerResponseDone,
					"response": map[string]string{"id": "resp_ws", "status": "completed"},
				})
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSTransportRoundTrip(t *testing.T) {
	server := echoServer(t)
	defer server.Close()

	transport := NewWSTransport(wsURL(server), nil)
	if err := transport.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer transport.Close()

	if err := transport.Send(&ClientEvent{Type: ClientSessionUpdate, Session: &SessionUpdate{Model: "m"}}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case event := <-transport.Events():
		if event.Type != ServerSessionCreated || event.Session == nil || event.Session.ID != "sess_ws" {
			t.Errorf("event = %+v, want session.created", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no server event received")
	}

	if err := transport.Send(&ClientEvent{Type: ClientResponseCreate}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case event := <-transport.Events():
		if event.Type != ServerResponseDone || event.Response == nil || event.Response.ID != "resp_ws" {
			t.Errorf("event = %+v, want response.done", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no response event received")
	}
}

func TestWSTransportSendBeforeConnect(t *testing.T) {
	transport := NewWSTransport("ws://127.0.0.1:0", nil)
	if err := transport.Send(&ClientEvent{Type: ClientResponseCreate}); err == nil {
		t.Error("Send before Connect must fail")
	}
}

func TestWSTransportCloseDropsEventChannel(t *testing.T) {
	server := echoServer(t)
	defer server.Close()

	transport := NewWSTransport(wsURL(server), nil)
	if err := transport.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	events := transport.Events()
	transport.Close()

	select {
	case _, ok := <-events:
		if ok {
			t.Error("expected the channel to close without further events")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel never closed after Close")
	}

	// Connect after Close is refused.
	if err := transport.Connect(context.Background()); err == nil {
		t.Error("Connect after Close must fail")
	}
}

func TestWSTransportDialFailure(t *testing.T) {
	transport := NewWSTransport("ws://127.0.0.1:1", nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := transport.Connect(ctx); err == nil {
		t.Error("dial to a closed port must fail")
	}
}
