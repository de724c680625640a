package hub

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/metrics"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/protocol"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/repository"
)

type ClientInterface interface {
	ID() string
	SendJSON(v interface{})
	SendBytes(b []byte)
	Close()
}

// Hub fans every relayed trade out to all connected browsers. Each client
// maps to the highest trade id its connect snapshot carried; live trades at
// or below it were already replayed and are skipped.
type Hub struct {
	clients map[ClientInterface]int64

	store  repository.TradeStore
	logger *zap.Logger
	mu     sync.RWMutex
}

func NewHub(store repository.TradeStore, logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[ClientInterface]int64),
		store:   store,
		logger:  logger,
	}
}

// Run relays the store's pub/sub feed until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("Hub Started")
	h.store.RunPubSub(ctx, h.Broadcast)
	h.logger.Info("Hub Stopped")
}

// Register replays the recent trades to the client and adds it. Broadcasts
// wait until the snapshot is queued, so the client sees every trade once and
// in id order.
func (h *Hub) Register(ctx context.Context, client ClientInterface) {
	h.mu.Lock()
	floor := h.sendSnapshot(ctx, client)
	h.clients[client] = floor
	count := len(h.clients)
	h.mu.Unlock()

	metrics.ConnectedClients.Set(float64(count))
	h.logger.Debug("Client registered", zap.String("client", client.ID()),
		zap.Int("clients", count), zap.Int64("snapshot_floor", floor))
}

func (h *Hub) HandleCommand(ctx context.Context, client ClientInterface, req protocol.WSRequest) {
	switch req.Action {
	case protocol.ActionSnapshot:
		h.sendSnapshot(ctx, client)
	default:
		h.sendError(client, "Unknown action: "+req.Action)
	}
}

func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	count := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	metrics.ConnectedClients.Set(float64(count))
	client.Close()
}

func (h *Hub) Broadcast(payload string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	msgBytes := []byte(payload)
	id, ok := protocol.TradeID(msgBytes)
	for client, floor := range h.clients {
		if ok && id <= floor {
			continue
		}
		client.SendBytes(msgBytes)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown disconnects every client.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[ClientInterface]int64)
	h.mu.Unlock()

	for client := range clients {
		client.Close()
	}
	metrics.ConnectedClients.Set(0)
}

// sendSnapshot queues the recent trades and returns the highest id among
// them.
func (h *Hub) sendSnapshot(ctx context.Context, client ClientInterface) int64 {
	recent, err := h.store.Recent(ctx)
	if err != nil {
		h.logger.Warn("Failed to read recent trades", zap.Error(err))
		h.sendError(client, "Snapshot unavailable")
		return 0
	}
	var floor int64
	for _, payload := range recent {
		b := []byte(payload)
		if id, ok := protocol.TradeID(b); ok && id > floor {
			floor = id
		}
		client.SendBytes(b)
	}
	return floor
}

func (h *Hub) sendError(c ClientInterface, msg string) {
	c.SendJSON(protocol.WSMessage{Type: protocol.TypeError, Message: msg})
}
