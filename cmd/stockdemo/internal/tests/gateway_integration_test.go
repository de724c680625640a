package tests

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket" // Using Gorilla for the test CLIENT
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/gateway"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/hub"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/protocol"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/relay"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/repository"
	"github.com/shubham-shewale/stock-demo/pkg/models"
)

type env struct {
	server *httptest.Server
	hub    *hub.Hub
	relay  *relay.RedisRelay
	mr     *miniredis.Miniredis
}

func startServer(t *testing.T) *env {
	mr := miniredis.RunT(t)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := repository.NewRedisStore(rdb, "trades", "trades:recent")
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Ready(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	wsHub := hub.NewHub(store, zap.NewNop())
	go wsHub.Run(ctx)

	server := httptest.NewServer(gateway.Handler(ctx, wsHub, zap.NewNop()))
	t.Cleanup(server.Close)

	return &env{
		server: server,
		hub:    wsHub,
		relay:  relay.NewRedisRelay(zap.NewNop(), rdb, "trades", "trades:recent", 10),
		mr:     mr,
	}
}

func connectWS(t *testing.T, serverURL string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(serverURL, "http")
	wsConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to connect to websocket: %v", err)
	}
	t.Cleanup(func() { wsConn.Close() })
	return wsConn
}

func readTrade(t *testing.T, conn *websocket.Conn) models.TradeNotification {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var m protocol.WSMessage
	require.NoError(t, json.Unmarshal(msg, &m))
	require.Equal(t, protocol.TypeReceiveTrade, m.Type, "message: %s", msg)
	require.NotNil(t, m.Args)
	return *m.Args
}

func trade(id int64) models.TradeNotification {
	return models.TradeNotification{ID: id, Ticker: "GOOG", Name: "Google", Quantity: 50, Price: 100, Up: true}
}

func TestEndToEnd_LiveTrade(t *testing.T) {
	e := startServer(t)
	wsConn := connectWS(t, e.server.URL)
	require.Eventually(t, func() bool { return e.hub.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, e.relay.Relay(context.Background(), trade(1)))

	assert.Equal(t, trade(1), readTrade(t, wsConn))
}

func TestEndToEnd_SnapshotOnConnect(t *testing.T) {
	e := startServer(t)
	for i := int64(1); i <= 12; i++ {
		require.NoError(t, e.relay.Relay(context.Background(), trade(i)))
	}

	wsConn := connectWS(t, e.server.URL)

	// Only the last 10 survive, oldest first.
	for want := int64(3); want <= 12; want++ {
		assert.Equal(t, want, readTrade(t, wsConn).ID)
	}
}

func TestEndToEnd_InvalidJSON(t *testing.T) {
	e := startServer(t)
	wsConn := connectWS(t, e.server.URL)

	wsConn.WriteMessage(websocket.TextMessage, []byte(`{ "action": "snap`))

	wsConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := wsConn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "Invalid JSON")
}

func TestEndToEnd_MaxMessageSize(t *testing.T) {
	e := startServer(t)
	wsConn := connectWS(t, e.server.URL)

	hugeMsg := `{"action":"` + strings.Repeat("a", 8*1024) + `"}`

	err := wsConn.WriteMessage(websocket.TextMessage, []byte(hugeMsg))
	// Depending on timing, write might succeed, but Read should fail (Disconnect)
	if err == nil {
		wsConn.SetReadDeadline(time.Now().Add(1 * time.Second))
		_, _, err = wsConn.ReadMessage()
	}
	assert.Error(t, err, "Server should have closed connection for huge message")
}

func TestEndToEnd_PingAnswered(t *testing.T) {
	e := startServer(t)
	wsConn := connectWS(t, e.server.URL)
	require.Eventually(t, func() bool { return e.hub.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	pongs := make(chan string, 1)
	wsConn.SetPongHandler(func(data string) error {
		pongs <- data
		return nil
	})
	require.NoError(t, wsConn.WriteControl(websocket.PingMessage, []byte("hb"), time.Now().Add(time.Second)))

	// Control frames are handled inside ReadMessage; no trade will arrive.
	wsConn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	wsConn.ReadMessage()

	select {
	case data := <-pongs:
		assert.Equal(t, "hb", data)
	default:
		t.Fatal("Server did not answer the ping")
	}
}

func TestEndToEnd_SnapshotRequest(t *testing.T) {
	e := startServer(t)
	wsConn := connectWS(t, e.server.URL)
	require.Eventually(t, func() bool { return e.hub.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, e.relay.Relay(context.Background(), trade(1)))
	assert.Equal(t, int64(1), readTrade(t, wsConn).ID)

	require.NoError(t, wsConn.WriteMessage(websocket.TextMessage, []byte(`{"action":"snapshot"}`)))
	assert.Equal(t, int64(1), readTrade(t, wsConn).ID)
}
