package realtime

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bimakw/nadfun-gateway/internal/config"
	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
)

func testFeedConfig() config.FeedConfig {
	return config.FeedConfig{
		Enabled:              true,
		BaseReconnectDelay:   time.Millisecond,
		MaxReconnectAttempts: 0,
		RateWindow:           60 * time.Second,
		PruneSchedule:        "@every 1m",
	}
}

func TestFeed_Stats(t *testing.T) {
	conn := &fakeConn{messages: [][]byte{
		[]byte(`{"jsonrpc":"2.0","id":1,"result":"0xheads"}`),
		[]byte(`{"jsonrpc":"2.0","method":"eth_subscription","params":{"subscription":"0xheads","result":{"number":"0x10","hash":"0x00000000000000000000000000000000000000000000000000000000000000aa","timestamp":"0x1"}}}`),
		[]byte(`{"jsonrpc":"2.0","method":"eth_subscription","params":{"subscription":"0xunknown","result":{"address":"0x1000000000000000000000000000000000000001","topics":["0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925"],"data":"0x","blockNumber":"0x10","transactionHash":"0x00000000000000000000000000000000000000000000000000000000000000bb","logIndex":"0x0"}}}`),
	}}

	feed := NewFeed(testFeedConfig(), "ws://node.invalid", nil, nil, zap.NewNop(),
		WithDialer(&fakeDialer{conns: []*fakeConn{conn}}),
		WithSleeper((&recordingSleeper{}).sleep),
	)
	now := time.Unix(1700000000, 0)
	feed.now = func() time.Time { return now }

	require.NoError(t, feed.Start(context.Background()))
	defer feed.Stop()

	require.ErrorIs(t, feed.Wait(), ErrMaxReconnectAttempts)

	stats := feed.Stats()
	assert.Equal(t, string(StateDisconnected), stats.State)
	assert.Equal(t, uint64(16), stats.LastBlock)
	assert.Equal(t, int64(1), stats.LogsByKind[entities.LogApproval])
	assert.InDelta(t, 1.0/60.0, stats.BlocksPerSecond, 1e-9)
	assert.InDelta(t, 1.0/60.0, stats.TxPerSecond, 1e-9)
}

func TestFeed_InvalidPruneSchedule(t *testing.T) {
	cfg := testFeedConfig()
	cfg.PruneSchedule = "every now and then"

	feed := NewFeed(cfg, "ws://node.invalid", nil, nil, zap.NewNop())
	assert.Error(t, feed.Start(context.Background()))
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub([]string{"*"}, zap.NewNop())
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast("block", entities.BlockHeader{Number: 7})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string               `json:"type"`
		Data entities.BlockHeader `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "block", msg.Type)
	assert.Equal(t, uint64(7), msg.Data.Number)
}

func TestHub_BroadcastDropsSlowClientWithoutBlocking(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())

	// a client whose writer never drains its queue
	slow := &hubClient{send: make(chan []byte, 1)}
	hub.clients[slow] = struct{}{}

	done := make(chan struct{})
	go func() {
		hub.Broadcast("block", entities.BlockHeader{Number: 1})
		hub.Broadcast("block", entities.BlockHeader{Number: 2})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a slow client")
	}

	assert.Zero(t, hub.ClientCount())
	_, open := <-slow.send
	assert.True(t, open, "queued message stays readable")
	_, open = <-slow.send
	assert.False(t, open, "queue is closed once the client is dropped")
}

func TestHub_RejectsUnknownOrigin(t *testing.T) {
	hub := NewHub([]string{"https://nad.fun"}, zap.NewNop())
	server := httptest.NewServer(hub)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	header := map[string][]string{"Origin": {"https://evil.example"}}
	_, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	assert.Error(t, err)
	assert.Zero(t, hub.ClientCount())
}
