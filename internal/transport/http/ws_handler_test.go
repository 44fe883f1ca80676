package http

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestAdminFeedStreamsAttempts(t *testing.T) {
	env := newTestEnv(t, nil)
	creds := map[string]string{"email": "root@example.com", "password": "correct-horse"}
	env.do(t, http.MethodPost, "/api/admin/signup", creds, map[string]string{"X-Admin-Secret": testMasterKey})
	_, body := env.do(t, http.MethodPost, "/api/admin/login", creds, nil)
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("expected token, got %v", body)
	}

	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/admin/feed?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Wait for the subscription before submitting.
	deadline := time.Now().Add(5 * time.Second)
	for env.feed.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("feed subscription never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	env.start(t, "alice@example.com")
	env.do(t, http.MethodPost, "/api/quiz/submit", map[string]any{
		"email":   "alice@example.com",
		"answers": []map[string]any{{"questionId": 1, "selectedIndex": 0}},
	}, nil)

	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != "attempt" {
		t.Fatalf("expected attempt message, got %s", msg.Type)
	}
	if msg.Payload["userEmail"] != "alice@example.com" || msg.Payload["score"].(float64) != 1 {
		t.Fatalf("unexpected payload %v", msg.Payload)
	}
}

func TestAdminFeedRejectsMissingToken(t *testing.T) {
	env := newTestEnv(t, nil)

	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/admin/feed"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 response, got %+v", resp)
	}
}
