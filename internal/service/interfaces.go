package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"tender_watch/internal/domain"
)

// Fetcher retrieves the current listings from one external source.
type Fetcher interface {
	ID() string
	Name() string
	FetchListings(ctx context.Context) ([]domain.Listing, error)
}

// CacheStore is the keyed cache behind the aggregator. Get returns
// cache.ErrNoEntry for an absent key; staleness is judged by the
// caller through CacheEntry.Valid.
type CacheStore interface {
	Get(ctx context.Context, key string) (*domain.CacheEntry, error)
	Put(ctx context.Context, key string, payload []domain.Listing, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Publisher emits an event for each listing that appears in a source
// for the first time.
type Publisher interface {
	PublishNew(ctx context.Context, listing *domain.Listing) error
	Close() error
}
