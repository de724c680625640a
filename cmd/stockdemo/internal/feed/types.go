package feed

import (
	"context"
	"math/rand"

	"github.com/shubham-shewale/stock-demo/pkg/models"
)

// for deterministic values
type Rand interface {
	Intn(n int) int
}

// Publisher is where generated trades go.
type Publisher interface {
	Publish(ctx context.Context, trade models.TradeEvent) error
}

type RealRand struct{ *rand.Rand }

func (r RealRand) Intn(n int) int { return r.Rand.Intn(n) }
