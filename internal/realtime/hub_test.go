package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundquant/internal/contracts"
	"github.com/wonny/fundquant/pkg/logger"
)

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var e Event
	require.NoError(t, json.Unmarshal(data, &e))
	return e
}

func TestHub_SnapshotAndBroadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(logger.Nop())
	go hub.Run(ctx)

	assert.Nil(t, hub.Last())
	hub.Publish(contracts.Progress{RunID: "r1", Code: "000001", Status: contracts.StatusOK, Done: 1, Total: 2})
	require.Eventually(t, func() bool { return len(hub.broadcast) == 0 }, time.Second, 5*time.Millisecond)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	snapshot := readEvent(t, conn)
	assert.Equal(t, EventSnapshot, snapshot.Type)
	assert.Equal(t, "000001", snapshot.Progress.Code)
	assert.False(t, snapshot.Finished())

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(contracts.Progress{RunID: "r1", Code: "000002", Status: contracts.StatusFailed, Done: 2, Total: 2})
	event := readEvent(t, conn)
	assert.Equal(t, EventProgress, event.Type)
	assert.Equal(t, contracts.StatusFailed, event.Progress.Status)
	assert.True(t, event.Finished())

	assert.Equal(t, "000002", hub.Last().Progress.Code)
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	hub := NewHub(logger.Nop()) // Run not started: buffer fills, then drops

	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBuffer*2; i++ {
			hub.Publish(contracts.Progress{Done: i + 1, Total: sendBuffer * 2})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked")
	}
	assert.Equal(t, sendBuffer*2, hub.Last().Progress.Done)
}
