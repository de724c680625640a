package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/repository"
)

func newStore(t *testing.T) (*repository.RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := repository.NewRedisStore(rdb, "trades", "trades:recent")
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Ready(context.Background()))
	return store, mr
}

func TestRecent_OldestFirst(t *testing.T) {
	store, mr := newStore(t)
	mr.Lpush("trades:recent", "a")
	mr.Lpush("trades:recent", "b")
	mr.Lpush("trades:recent", "c")

	recent, err := store.Recent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, recent)
}

func TestRecent_Empty(t *testing.T) {
	store, _ := newStore(t)
	recent, err := store.Recent(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestRunPubSub(t *testing.T) {
	store, mr := newStore(t)

	got := make(chan string, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.RunPubSub(ctx, func(payload string) { got <- payload })
		close(done)
	}()

	mr.Publish("trades", "hello")
	select {
	case p := <-got:
		assert.Equal(t, "hello", p)
	case <-time.After(2 * time.Second):
		t.Fatal("payload not delivered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPubSub did not return")
	}
}
