// Package postgres is the persistent CacheStore backend: one set of
// listing rows per cache key, wholesale-replaced on refresh, plus a
// metadata row carrying last_updated, ttl_seconds and record_count.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"tender_watch/internal/cache"
	"tender_watch/internal/domain"
)

type listingRow struct {
	CacheKey        string         `db:"cache_key"`
	Position        int            `db:"position"`
	ListingID       string         `db:"listing_id"`
	Title           string         `db:"title"`
	BuyerName       string         `db:"buyer_name"`
	BuyerID         sql.NullString `db:"buyer_id"`
	PublicationDate time.Time      `db:"publication_date"`
	DeadlineDate    sql.NullTime   `db:"deadline_date"`
	ProcedureType   sql.NullString `db:"procedure_type"`
	Nature          sql.NullString `db:"nature"`
	SourceID        string         `db:"source_id"`
	OriginURL       string         `db:"origin_url"`
}

type stateRow struct {
	CacheKey    string    `db:"cache_key"`
	LastUpdated time.Time `db:"last_updated"`
	TTLSeconds  int64     `db:"ttl_seconds"`
	RecordCount int       `db:"record_count"`
}

// CacheStore persists cache entries in postgres.
type CacheStore struct {
	db *sqlx.DB
	tm *TransactionManager
}

// NewCacheStore wires a store over an open connection pool.
func NewCacheStore(db *sqlx.DB) *CacheStore {
	return &CacheStore{db: db, tm: NewTransactionManager(db)}
}

// Get loads the entry for key, or cache.ErrNoEntry when the metadata
// row is absent.
func (s *CacheStore) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	var state stateRow
	err := s.db.GetContext(ctx, &state,
		`SELECT cache_key, last_updated, ttl_seconds, record_count
		 FROM cache_state WHERE cache_key = $1`, key)
	if err == sql.ErrNoRows {
		return nil, cache.ErrNoEntry
	}
	if err != nil {
		return nil, fmt.Errorf("load cache state: %w", err)
	}

	var rows []listingRow
	err = s.db.SelectContext(ctx, &rows,
		`SELECT cache_key, position, listing_id, title, buyer_name, buyer_id,
		        publication_date, deadline_date, procedure_type, nature,
		        source_id, origin_url
		 FROM listing_cache WHERE cache_key = $1 ORDER BY position`, key)
	if err != nil {
		return nil, fmt.Errorf("load cached listings: %w", err)
	}

	entry := &domain.CacheEntry{
		Key:         key,
		Payload:     make([]domain.Listing, 0, len(rows)),
		LastUpdated: state.LastUpdated,
		TTL:         time.Duration(state.TTLSeconds) * time.Second,
		RecordCount: state.RecordCount,
	}
	for _, r := range rows {
		entry.Payload = append(entry.Payload, rowToListing(r))
	}
	return entry, nil
}

// Put replaces the key's rows and its metadata row in one transaction,
// so a concurrent reader sees either the old set or the new one.
func (s *CacheStore) Put(ctx context.Context, key string, payload []domain.Listing, ttl time.Duration) error {
	return s.tm.WithTransaction(ctx, func(ctx context.Context) error {
		ex := GetExecutor(ctx, s.db)

		if _, err := ex.ExecContext(ctx, `DELETE FROM listing_cache WHERE cache_key = $1`, key); err != nil {
			return fmt.Errorf("clear cached listings: %w", err)
		}

		for i, l := range payload {
			_, err := ex.ExecContext(ctx,
				`INSERT INTO listing_cache (
					cache_key, position, listing_id, title, buyer_name, buyer_id,
					publication_date, deadline_date, procedure_type, nature,
					source_id, origin_url
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				key, i, l.ID, l.Title, l.BuyerName, l.BuyerID,
				l.PublicationDate, l.DeadlineDate, l.ProcedureType, l.Nature,
				l.SourceID, l.OriginURL,
			)
			if err != nil {
				return fmt.Errorf("insert cached listing %s: %w", l.ID, err)
			}
		}

		_, err := ex.ExecContext(ctx,
			`INSERT INTO cache_state (cache_key, last_updated, ttl_seconds, record_count)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (cache_key) DO UPDATE SET
				last_updated = EXCLUDED.last_updated,
				ttl_seconds = EXCLUDED.ttl_seconds,
				record_count = EXCLUDED.record_count`,
			key, time.Now().UTC(), int64(ttl/time.Second), len(payload),
		)
		if err != nil {
			return fmt.Errorf("upsert cache state: %w", err)
		}
		return nil
	})
}

// Invalidate drops the key's rows and metadata.
func (s *CacheStore) Invalidate(ctx context.Context, key string) error {
	return s.tm.WithTransaction(ctx, func(ctx context.Context) error {
		ex := GetExecutor(ctx, s.db)

		if _, err := ex.ExecContext(ctx, `DELETE FROM listing_cache WHERE cache_key = $1`, key); err != nil {
			return fmt.Errorf("clear cached listings: %w", err)
		}
		if _, err := ex.ExecContext(ctx, `DELETE FROM cache_state WHERE cache_key = $1`, key); err != nil {
			return fmt.Errorf("clear cache state: %w", err)
		}
		return nil
	})
}

func rowToListing(r listingRow) domain.Listing {
	l := domain.Listing{
		ID:              r.ListingID,
		Title:           r.Title,
		BuyerName:       r.BuyerName,
		PublicationDate: r.PublicationDate,
		SourceID:        r.SourceID,
		OriginURL:       r.OriginURL,
	}
	if r.BuyerID.Valid {
		v := r.BuyerID.String
		l.BuyerID = &v
	}
	if r.DeadlineDate.Valid {
		v := r.DeadlineDate.Time
		l.DeadlineDate = &v
	}
	if r.ProcedureType.Valid {
		v := r.ProcedureType.String
		l.ProcedureType = &v
	}
	if r.Nature.Valid {
		v := r.Nature.String
		l.Nature = &v
	}
	return l
}
