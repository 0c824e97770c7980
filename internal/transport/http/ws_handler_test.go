package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestStreamSendsCriticalThenDeferred(t *testing.T) {
	server := httptest.NewServer(NewRouter(newService(), nil))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/stats?userId=u1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_, critical := readNext(conn, t, "critical")
	if _, ok := critical["weeklyStreak"]; !ok {
		t.Fatalf("expected weeklyStreak in critical payload, got %v", critical)
	}
	_, deferred := readNext(conn, t, "deferred")
	if _, ok := deferred["performanceOverTime"]; !ok {
		t.Fatalf("expected performanceOverTime in deferred payload, got %v", deferred)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close, got %v", err)
	}
}

func TestStreamReportsErrors(t *testing.T) {
	server := httptest.NewServer(NewRouter(newService(), nil))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/stats?userId=%20"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_, payload := readNext(conn, t, "error")
	if payload["message"] != "user id is required" {
		t.Fatalf("unexpected error payload %v", payload)
	}
}

func TestStreamRequiresUserID(t *testing.T) {
	server := httptest.NewServer(NewRouter(newService(), nil))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/stats"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Fatalf("expected 400 response, got %v", resp)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
