package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"tender_watch/internal/cache"
	"tender_watch/internal/dedup"
	"tender_watch/internal/domain"
	"tender_watch/internal/metrics"
	"tender_watch/internal/registry"
	"tender_watch/internal/urgency"
)

// ErrUnknownBuyer is returned by the buyer-scoped views for an ID the
// registry does not know.
var ErrUnknownBuyer = errors.New("unknown buyer id")

// SourceSpec binds one fetcher to its cache key, TTL and per-call
// timeout. Specs are ordered: the first source is authoritative in
// deduplication, later ones only fill gaps.
type SourceSpec struct {
	Fetcher Fetcher
	TTL     time.Duration
	Timeout time.Duration
}

// Aggregator is the façade over the acquisition pipeline: it checks
// the cache, refreshes stale sources, reconciles the results and
// serves buyer-scoped views.
type Aggregator struct {
	sources   []SourceSpec
	cache     CacheStore
	registry  *registry.Registry
	publisher Publisher // may be nil
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex // serializes refreshes per key
}

// NewAggregator wires the façade. The order of sources sets dedup
// priority; publisher may be nil when no event stream is configured.
func NewAggregator(
	sources []SourceSpec,
	cacheStore CacheStore,
	reg *registry.Registry,
	publisher Publisher,
	logger *slog.Logger,
) *Aggregator {
	return &Aggregator{
		sources:   sources,
		cache:     cacheStore,
		registry:  reg,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		keyLocks:  make(map[string]*sync.Mutex),
	}
}

// GetAll returns the merged catalogue. Sources are resolved
// concurrently; each resolves from its cache entry when valid,
// refreshes otherwise, and falls back to its stale entry when the
// refresh fails. A failing secondary source degrades the response, a
// failing primary one with nothing cached fails it.
func (a *Aggregator) GetAll(ctx context.Context, includeSecondary bool) (*domain.Aggregate, error) {
	specs := a.sources
	if len(specs) == 0 {
		return &domain.Aggregate{}, nil
	}
	if !includeSecondary && len(specs) > 1 {
		specs = specs[:1]
	}

	payloads := make([][]domain.Listing, len(specs))
	statuses := make([]domain.SourceStatus, len(specs))

	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec SourceSpec) {
			defer wg.Done()
			payloads[i], statuses[i] = a.resolveSource(ctx, spec)
		}(i, spec)
	}
	wg.Wait()

	// The primary source has no business degrading silently: with no
	// data at all from it, the aggregate would misrepresent the
	// catalogue.
	if statuses[0].Err != "" && statuses[0].Count == 0 {
		return nil, fmt.Errorf("primary source %s: %s", statuses[0].SourceID, statuses[0].Err)
	}

	total := 0
	merged := payloads[0]
	total += len(payloads[0])
	for _, p := range payloads[1:] {
		merged = dedup.Merge(merged, p)
		total += len(p)
	}

	now := a.now()
	enriched := make([]domain.Listing, len(merged))
	copy(enriched, merged)
	for i := range enriched {
		enriched[i].Urgency = urgency.Classify(enriched[i].DeadlineDate, now)
	}

	sort.SliceStable(enriched, func(i, j int) bool {
		return enriched[i].PublicationDate.After(enriched[j].PublicationDate)
	})

	return &domain.Aggregate{
		Listings:          enriched,
		Sources:           statuses,
		DuplicatesRemoved: total - len(merged),
	}, nil
}

// resolveSource returns the freshest payload obtainable for one source
// and the status metadata describing how fresh it is.
func (a *Aggregator) resolveSource(ctx context.Context, spec SourceSpec) ([]domain.Listing, domain.SourceStatus) {
	key := spec.Fetcher.ID()
	status := domain.SourceStatus{SourceID: key}

	entry, err := a.cache.Get(ctx, key)
	if err != nil && !errors.Is(err, cache.ErrNoEntry) {
		a.logger.Warn("cache read failed", "key", key, "error", err)
	}

	if entry != nil && entry.Valid(a.now()) {
		metrics.CacheHits.WithLabelValues(key).Inc()
		status.Count = entry.RecordCount
		status.CachedAt = entry.LastUpdated
		return entry.Payload, status
	}

	payload, refreshErr := a.refresh(ctx, spec, false)
	if refreshErr == nil {
		status.Count = len(payload)
		status.CachedAt = a.now()
		return payload, status
	}

	a.logger.Warn("refresh failed",
		"source", key,
		"error", refreshErr,
	)
	status.Err = refreshErr.Error()

	if entry != nil {
		// Past its TTL but better than nothing.
		metrics.CacheStaleServes.WithLabelValues(key).Inc()
		status.Stale = true
		status.Count = entry.RecordCount
		status.CachedAt = entry.LastUpdated
		return entry.Payload, status
	}

	metrics.CacheMisses.WithLabelValues(key).Inc()
	return nil, status
}

// refresh fetches one source, enriches buyer references, persists the
// new payload and publishes listings not present in the previous one.
// Refreshes of the same key are serialized; concurrent callers wait
// and then find a fresh entry instead of fetching twice. With force
// set the TTL recheck is skipped (scheduler use).
func (a *Aggregator) refresh(ctx context.Context, spec SourceSpec, force bool) ([]domain.Listing, error) {
	key := spec.Fetcher.ID()
	lock := a.refreshLock(key)
	lock.Lock()
	defer lock.Unlock()

	var previous *domain.CacheEntry
	if entry, err := a.cache.Get(ctx, key); err == nil {
		previous = entry
	}

	// Another request may have refreshed while this one waited.
	if !force && previous != nil && previous.Valid(a.now()) {
		return previous.Payload, nil
	}

	fetchCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	started := a.now()
	payload, err := spec.Fetcher.FetchListings(fetchCtx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}

	for i := range payload {
		if id, ok := a.registry.MatchEntity(payload[i].BuyerName); ok {
			buyerID := id
			payload[i].BuyerID = &buyerID
		}
	}

	if err := a.cache.Put(ctx, key, payload, spec.TTL); err != nil {
		// The fetch succeeded; serve it anyway. The next request
		// re-fetches since the cache was not updated.
		a.logger.Error("cache write failed, serving uncached result",
			"key", key,
			"error", err,
		)
	}

	published := a.publishNew(ctx, previous, payload)

	a.logger.Info("source refreshed",
		"source", key,
		"fetched", len(payload),
		"published", published,
		"duration", a.now().Sub(started),
	)
	return payload, nil
}

func (a *Aggregator) publishNew(ctx context.Context, previous *domain.CacheEntry, payload []domain.Listing) int {
	if a.publisher == nil {
		return 0
	}

	known := make(map[string]struct{})
	if previous != nil {
		for _, l := range previous.Payload {
			known[l.ID] = struct{}{}
		}
	}

	published := 0
	for i := range payload {
		if _, seen := known[payload[i].ID]; seen {
			continue
		}
		if err := a.publisher.PublishNew(ctx, &payload[i]); err != nil {
			a.logger.Warn("publish failed", "listing", payload[i].ID, "error", err)
			continue
		}
		published++
	}
	return published
}

func (a *Aggregator) refreshLock(key string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.keyLocks[key]; !ok {
		a.keyLocks[key] = &sync.Mutex{}
	}
	return a.keyLocks[key]
}
