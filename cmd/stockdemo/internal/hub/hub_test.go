package hub_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/hub"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/protocol"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/testutils"
	"github.com/shubham-shewale/stock-demo/pkg/models"
)

func setup(recent ...string) (*hub.Hub, *testutils.MockTradeStore) {
	store := testutils.NewMockStore(recent...)
	logger := zap.NewNop()
	return hub.NewHub(store, logger), store
}

func TestHub_Register_SendsSnapshot(t *testing.T) {
	h, _ := setup("t1", "t2")
	client := testutils.NewMockClient("c1")

	h.Register(context.Background(), client)

	raw := client.Raw()
	if len(raw) != 2 || raw[0] != "t1" || raw[1] != "t2" {
		t.Errorf("Expected snapshot [t1 t2], got %v", raw)
	}
	if h.ClientCount() != 1 {
		t.Errorf("Expected 1 client, got %d", h.ClientCount())
	}
}

func TestHub_Register_SnapshotUnavailable(t *testing.T) {
	h, store := setup()
	store.RecentErr = errors.New("redis down")
	client := testutils.NewMockClient("c1")

	h.Register(context.Background(), client)

	if client.LastMsgType() != protocol.TypeError {
		t.Errorf("Expected error message, got %q", client.LastMsgType())
	}
	if h.ClientCount() != 1 {
		t.Errorf("Client should stay registered without a snapshot")
	}
}

func TestHub_HandleCommand(t *testing.T) {
	h, _ := setup("t1")
	client := testutils.NewMockClient("c1")

	h.HandleCommand(context.Background(), client, protocol.WSRequest{Action: protocol.ActionSnapshot})
	if raw := client.Raw(); len(raw) != 1 || raw[0] != "t1" {
		t.Errorf("Expected snapshot replay, got %v", raw)
	}

	h.HandleCommand(context.Background(), client, protocol.WSRequest{Action: "subscribe"})
	last := client.Messages[len(client.Messages)-1]
	if last.Type != protocol.TypeError || last.Message != "Unknown action: subscribe" {
		t.Errorf("Expected unknown action error, got %+v", last)
	}
}

func TestHub_Broadcast(t *testing.T) {
	h, _ := setup()
	c1 := testutils.NewMockClient("c1")
	c2 := testutils.NewMockClient("c2")
	h.Register(context.Background(), c1)
	h.Register(context.Background(), c2)

	h.Broadcast("trade")

	for _, c := range []*testutils.MockClient{c1, c2} {
		if raw := c.Raw(); len(raw) != 1 || raw[0] != "trade" {
			t.Errorf("%s: expected broadcast, got %v", c.ID(), raw)
		}
	}
}

func tradePayload(t *testing.T, id int64) string {
	t.Helper()
	b, err := json.Marshal(protocol.NewTradeMessage(models.TradeNotification{ID: id, Ticker: "GOOG", Name: "Google", Quantity: 50, Price: 100}))
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func receivedIDs(t *testing.T, c *testutils.MockClient) []int64 {
	t.Helper()
	var ids []int64
	for _, raw := range c.Raw() {
		id, ok := protocol.TradeID([]byte(raw))
		if !ok {
			t.Fatalf("Not a trade message: %s", raw)
		}
		ids = append(ids, id)
	}
	return ids
}

// A trade already in the connect snapshot and also arriving over pub/sub
// must reach the client once.
func TestHub_Broadcast_SkipsTradesInSnapshot(t *testing.T) {
	h, _ := setup(tradePayload(t, 1), tradePayload(t, 2))
	client := testutils.NewMockClient("c1")
	h.Register(context.Background(), client)

	h.Broadcast(tradePayload(t, 2))
	h.Broadcast(tradePayload(t, 3))

	ids := receivedIDs(t, client)
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Errorf("Expected trades [1 2 3], got %v", ids)
	}
}

func TestHub_Register_SnapshotFailureKeepsLiveTrades(t *testing.T) {
	h, store := setup()
	store.RecentErr = errors.New("redis down")
	client := testutils.NewMockClient("c1")
	h.Register(context.Background(), client)

	h.Broadcast(tradePayload(t, 1))

	if ids := receivedIDs(t, client); len(ids) != 1 || ids[0] != 1 {
		t.Errorf("Expected trade 1, got %v", ids)
	}
}

func TestHub_Unregister(t *testing.T) {
	h, _ := setup()
	client := testutils.NewMockClient("c1")
	h.Register(context.Background(), client)

	h.Unregister(client)
	h.Unregister(client)

	if !client.IsClosed() {
		t.Error("Client should be closed")
	}
	h.Broadcast("trade")
	if len(client.Raw()) != 0 {
		t.Error("Unregistered client should not receive broadcasts")
	}
}

func TestHub_Run_RelaysPubSub(t *testing.T) {
	h, store := setup()
	client := testutils.NewMockClient("c1")
	h.Register(context.Background(), client)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	store.Feed <- "live"

	deadline := time.Now().Add(time.Second)
	for len(client.Raw()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if raw := client.Raw(); len(raw) != 1 || raw[0] != "live" {
		t.Errorf("Expected live payload, got %v", raw)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestHub_Shutdown(t *testing.T) {
	h, _ := setup()
	c1 := testutils.NewMockClient("c1")
	h.Register(context.Background(), c1)

	h.Shutdown()

	if !c1.IsClosed() || h.ClientCount() != 0 {
		t.Error("Shutdown should close and drop every client")
	}
}
