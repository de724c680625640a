package gateway

import (
	"context"
	"net/http"

	"github.com/gobwas/ws"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/hub"
)

// Handler upgrades requests to websocket trade feeds. ctx outlives the
// request: hijacked connections keep running after ServeHTTP returns.
func Handler(ctx context.Context, h *hub.Hub, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			logger.Debug("Websocket upgrade failed", zap.Error(err))
			return
		}

		client := NewClient(conn, h, logger)
		client.Start(ctx)
	}
}
