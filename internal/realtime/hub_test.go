package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub, groupID string) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Subscribe(w, r, groupID)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func TestHubPublishReachesGroupSubscriber(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn := dialHub(t, hub, "group-1")

	// Registration goes through the hub goroutine; give it a beat.
	time.Sleep(50 * time.Millisecond)

	hub.Publish(ProgressEvent{
		GroupID:       "group-1",
		UserID:        "user-1",
		Date:          "2026-03-02",
		Amount:        "2.5",
		CurrentAmount: "4",
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var event ProgressEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, "user-1", event.UserID)
	assert.Equal(t, "2.5", event.Amount)
}

func TestHubPublishScopedToGroup(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn := dialHub(t, hub, "group-2")
	time.Sleep(50 * time.Millisecond)

	hub.Publish(ProgressEvent{GroupID: "other-group", UserID: "user-1"})

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "subscriber must not receive another group's events")
}

func TestHubPublishNilSafe(t *testing.T) {
	var hub *Hub
	assert.NotPanics(t, func() {
		hub.Publish(ProgressEvent{GroupID: "any"})
	})
}
