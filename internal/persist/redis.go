package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"portmarket/internal/util"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Gateway persists the three collections as independently-keyed JSON blobs in
// Redis. A mutex serializes saves so two overlapping calls can never
// interleave writes to the same key; last completed save wins.
type Gateway struct {
	rdb    *redis.Client
	logger *zap.Logger

	saveMu sync.Mutex
}

// NewGateway connects to Redis and returns a blob-store gateway
func NewGateway(addr, password string, db int) (*Gateway, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Gateway{
		rdb:    rdb,
		logger: util.GetLogger(),
	}, nil
}

// Close closes the Redis connection
func (g *Gateway) Close() error {
	return g.rdb.Close()
}

// Load reads the three blobs. A missing or corrupt blob defaults that
// collection to empty; failures are logged, never returned to the caller.
func (g *Gateway) Load(ctx context.Context) (State, error) {
	var state State

	loadKey(ctx, g, KeyAvailableNumbers, &state.Listings)
	loadKey(ctx, g, KeyCart, &state.Cart)
	loadKey(ctx, g, KeyPurchasedNumbers, &state.Delivered)

	return state, nil
}

func loadKey[T any](ctx context.Context, g *Gateway, key string, out *[]T) {
	raw, err := g.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return
	}
	if err != nil {
		g.logger.Warn("Failed to load blob, defaulting to empty",
			zap.String("key", key),
			zap.Error(err))
		return
	}

	decodeBlob(g.logger, key, raw, out)
}

// decodeBlob unmarshals one persisted blob. A corrupt blob defaults the
// collection to empty instead of failing the whole load.
func decodeBlob[T any](logger *zap.Logger, key string, raw []byte, out *[]T) {
	if err := json.Unmarshal(raw, out); err != nil {
		logger.Warn("Failed to decode blob, defaulting to empty",
			zap.String("key", key),
			zap.Error(err))
		*out = nil
	}
}

// Save writes all three blobs in a single pipeline.
func (g *Gateway) Save(ctx context.Context, state State) error {
	g.saveMu.Lock()
	defer g.saveMu.Unlock()

	listings, err := json.Marshal(state.Listings)
	if err != nil {
		return fmt.Errorf("failed to marshal listings: %w", err)
	}
	cart, err := json.Marshal(state.Cart)
	if err != nil {
		return fmt.Errorf("failed to marshal cart: %w", err)
	}
	delivered, err := json.Marshal(state.Delivered)
	if err != nil {
		return fmt.Errorf("failed to marshal delivered records: %w", err)
	}

	pipe := g.rdb.Pipeline()
	pipe.Set(ctx, KeyAvailableNumbers, listings, 0)
	pipe.Set(ctx, KeyCart, cart, 0)
	pipe.Set(ctx, KeyPurchasedNumbers, delivered, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		util.PersistSaveTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to write state: %w", err)
	}

	util.PersistSaveTotal.WithLabelValues("ok").Inc()
	return nil
}
