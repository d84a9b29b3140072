package websocket_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/gamedev-cards/internal/domain"
	ws "github.com/gamedev-cards/internal/websocket"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type received struct {
	Type  string          `json:"type"`
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

func startHub(t *testing.T) (*ws.Hub, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := ws.NewHub(logger)
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(hub, logger, w, r)
	}))
	t.Cleanup(func() {
		assert.Eventually(t, func() bool { return hub.TotalConnections() == 0 }, 2*time.Second, 10*time.Millisecond)
		srv.Close()
		hub.Stop()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// next reads frames until a message of the wanted type arrives
func next(t *testing.T, conn *websocket.Conn, typ string) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, frame, err := conn.ReadMessage()
		require.NoError(t, err)
		for _, line := range strings.Split(string(frame), "\n") {
			var msg received
			require.NoError(t, json.Unmarshal([]byte(line), &msg))
			if msg.Type == typ {
				return msg
			}
		}
	}
}

func TestHub_DirectoryUpdateReachesExplorerSubscribers(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url+"?topic=explorer")

	require.Eventually(t, func() bool { return hub.SubscriberCount(ws.TopicExplorer) == 1 },
		2*time.Second, 10*time.Millisecond)

	hub.BroadcastDirectoryUpdate(3, []string{"0xp1"})

	msg := next(t, conn, ws.MessageTypeDirectoryUpdate)
	assert.Equal(t, ws.TopicExplorer, msg.Topic)
	var update ws.DirectoryUpdate
	require.NoError(t, json.Unmarshal(msg.Data, &update))
	assert.Equal(t, 3, update.Total)
	assert.Equal(t, []string{"0xp1"}, update.Changed)
}

func TestHub_OperationUpdateGoesToAddressTopicOnly(t *testing.T) {
	hub, url := startHub(t)
	owner := dial(t, url)
	other := dial(t, url)

	require.NoError(t, owner.WriteJSON(ws.ClientMessage{Type: ws.MessageTypeSubscribe, Topic: ws.AddressTopic("0xa")}))
	require.NoError(t, other.WriteJSON(ws.ClientMessage{Type: ws.MessageTypeSubscribe, Topic: ws.AddressTopic("0xb")}))
	next(t, owner, "subscribed")
	next(t, other, "subscribed")
	require.Eventually(t, func() bool {
		return hub.SubscriberCount(ws.AddressTopic("0xa")) == 1 && hub.SubscriberCount(ws.AddressTopic("0xb")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.OperationChanged(domain.PendingOperation{ID: "op1", Address: "0xa", Status: domain.StatusConfirmed})

	msg := next(t, owner, ws.MessageTypeOperationUpdate)
	var op domain.PendingOperation
	require.NoError(t, json.Unmarshal(msg.Data, &op))
	assert.Equal(t, "op1", op.ID)
	assert.Equal(t, domain.StatusConfirmed, op.Status)

	require.NoError(t, other.WriteJSON(ws.ClientMessage{Type: ws.MessageTypePing}))
	next(t, other, ws.MessageTypePong)
}

func TestHub_RejectsUnknownTopic(t *testing.T) {
	_, url := startHub(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(ws.ClientMessage{Type: ws.MessageTypeSubscribe, Topic: "scores:global"}))
	msg := next(t, conn, ws.MessageTypeError)
	assert.Contains(t, string(msg.Data), "topic")
}

func TestClient_DroppedAfterRepeatedMalformedFrames(t *testing.T) {
	_, url := startHub(t)
	conn := dial(t, url)

	for range 5 {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var errorReplies int
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
			break
		}
		errorReplies += strings.Count(string(frame), `"type":"error"`)
	}
	assert.LessOrEqual(t, errorReplies, 4, "the fifth malformed frame closes instead of replying")
}

func TestValidTopic(t *testing.T) {
	assert.True(t, ws.ValidTopic("explorer"))
	assert.True(t, ws.ValidTopic("address:0xabc"))
	assert.False(t, ws.ValidTopic("address:nope"))
	assert.False(t, ws.ValidTopic(""))
}
