package cache

import (
	"context"
	"errors"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
)

// CartCache holds cart rows keyed by user. Product state is never cached; callers
// join it from the store on every read.
//
// A fill reads Generation before loading the cart from the store and passes it to
// Set. Delete bumps the generation, so a fill that raced with a write is dropped.
type CartCache interface {
	Get(ctx context.Context, userID int64) (*domain.Cart, error)
	Generation(ctx context.Context, userID int64) (int64, error)
	// Set stores cart unless Delete was called for userID after gen was read.
	Set(ctx context.Context, userID, gen int64, cart *domain.Cart) error
	Delete(ctx context.Context, userID int64) error
}

var ErrCacheMiss = errors.New("cache miss")

// NoopCache always misses. Used when no Redis address is configured.
type NoopCache struct{}

func (NoopCache) Get(context.Context, int64) (*domain.Cart, error) { return nil, ErrCacheMiss }

func (NoopCache) Generation(context.Context, int64) (int64, error) { return 0, nil }

func (NoopCache) Set(context.Context, int64, int64, *domain.Cart) error { return nil }

func (NoopCache) Delete(context.Context, int64) error { return nil }
