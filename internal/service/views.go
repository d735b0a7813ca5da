package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"tender_watch/internal/cache"
	"tender_watch/internal/domain"
	"tender_watch/internal/registry"
	"tender_watch/internal/urgency"
)

// BuyerView is one registry entity enriched with listing counts for
// the buyer directory.
type BuyerView struct {
	Entity      domain.BuyerEntity
	ActiveCount int
	UrgentCount int
}

// BuyerDetail is one buyer with its full listing set and stats.
type BuyerDetail struct {
	Entity   domain.BuyerEntity
	Listings []domain.Listing
	Stats    domain.BuyerStats
}

// buckets splits a buyer's listings into the three deadline buckets.
// A listing whose deadline has passed is closed and counts nowhere,
// even while it lingers in a cached payload; one without a deadline
// stays active indefinitely.
func buckets(listings []domain.Listing, now time.Time) domain.BuyerStats {
	var stats domain.BuyerStats
	for _, l := range listings {
		if l.DeadlineDate == nil {
			stats.Active++
			continue
		}
		if l.DeadlineDate.Before(now) {
			continue
		}
		stats.Active++
		switch days := urgency.DaysUntil(*l.DeadlineDate, now); {
		case days <= 7:
			stats.Urgent++
		case days <= 30:
			stats.Medium++
		}
	}
	return stats
}

// Buyers returns registry entities filtered by group and search text,
// each enriched with listing counts. Derived from GetAll, never a
// separate fetch path.
func (a *Aggregator) Buyers(ctx context.Context, group, search string) ([]BuyerView, error) {
	agg, err := a.GetAll(ctx, true)
	if err != nil {
		return nil, err
	}
	idx := registry.NewListingIndex(agg.Listings)
	now := a.now()

	entities := a.registry.Search(search)
	var out []BuyerView
	for _, e := range entities {
		if group != "" && e.Tutelle != group {
			continue
		}
		stats := buckets(idx.ListingsFor(e), now)
		out = append(out, BuyerView{
			Entity:      e,
			ActiveCount: stats.Active,
			UrgentCount: stats.Urgent,
		})
	}
	return out, nil
}

// BuyerByID returns one buyer with its listings and the three-bucket
// stats.
func (a *Aggregator) BuyerByID(ctx context.Context, buyerID string) (*BuyerDetail, error) {
	entity, ok := a.registry.ByID(buyerID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBuyer, buyerID)
	}

	agg, err := a.GetAll(ctx, true)
	if err != nil {
		return nil, err
	}

	idx := registry.NewListingIndex(agg.Listings)
	listings := idx.ListingsFor(entity)

	// Re-sort: the index regrouped by buyer name.
	sortByPublicationDesc(listings)

	return &BuyerDetail{
		Entity:   entity,
		Listings: listings,
		Stats:    buckets(listings, a.now()),
	}, nil
}

// RefreshAll forces a refresh of every source, regardless of TTL. The
// background scheduler uses it to keep the cache warm; individual
// failures are logged and the rest proceed.
func (a *Aggregator) RefreshAll(ctx context.Context) error {
	var firstErr error
	for _, spec := range a.sources {
		if _, err := a.refresh(ctx, spec, true); err != nil {
			a.logger.Error("scheduled refresh failed",
				"source", spec.Fetcher.ID(),
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// CacheStats reports the metadata of every configured source key,
// without payloads. Used by the administrative invalidation endpoint.
func (a *Aggregator) CacheStats(ctx context.Context) []domain.CacheEntry {
	var out []domain.CacheEntry
	for _, spec := range a.sources {
		key := spec.Fetcher.ID()
		entry, err := a.cache.Get(ctx, key)
		if err != nil {
			if !errors.Is(err, cache.ErrNoEntry) {
				a.logger.Warn("cache read failed", "key", key, "error", err)
			}
			continue
		}
		entry.Payload = nil
		out = append(out, *entry)
	}
	return out
}

// InvalidateAll drops every configured source key from the cache.
func (a *Aggregator) InvalidateAll(ctx context.Context) error {
	var firstErr error
	for _, spec := range a.sources {
		if err := a.cache.Invalidate(ctx, spec.Fetcher.ID()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func sortByPublicationDesc(listings []domain.Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		return listings[i].PublicationDate.After(listings[j].PublicationDate)
	})
}
