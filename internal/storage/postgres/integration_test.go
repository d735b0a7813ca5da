//go:build integration

package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"tender_watch/internal/cache"
	"tender_watch/internal/domain"
)

type CacheStoreIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
	store     *CacheStore
}

func (s *CacheStoreIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_listing_cache.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
	s.store = NewCacheStore(db)
}

func (s *CacheStoreIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *CacheStoreIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM listing_cache")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM cache_state")
}

func TestCacheStoreIntegrationSuite(t *testing.T) {
	suite.Run(t, new(CacheStoreIntegrationSuite))
}

func (s *CacheStoreIntegrationSuite) payload() []domain.Listing {
	deadline := time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC)
	buyerID := "dga"
	proc := "Appel d'offres ouvert"
	return []domain.Listing{
		{
			ID:              "boamp:25-1",
			Title:           "Maintenance radar",
			BuyerName:       "Direction Générale de l'Armement",
			BuyerID:         &buyerID,
			PublicationDate: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
			DeadlineDate:    &deadline,
			ProcedureType:   &proc,
			SourceID:        "boamp",
			OriginURL:       "https://example.org/25-1",
		},
		{
			ID:              "boamp:25-2",
			Title:           "Fourniture gilets",
			BuyerName:       "Unknown buyer",
			PublicationDate: time.Date(2025, 10, 30, 0, 0, 0, 0, time.UTC),
			SourceID:        "boamp",
			OriginURL:       "https://example.org/25-2",
		},
	}
}

func (s *CacheStoreIntegrationSuite) TestPutGetRoundTrip() {
	s.Require().NoError(s.store.Put(s.ctx, "boamp", s.payload(), time.Hour))

	entry, err := s.store.Get(s.ctx, "boamp")
	s.Require().NoError(err)

	s.Equal("boamp", entry.Key)
	s.Equal(2, entry.RecordCount)
	s.Equal(time.Hour, entry.TTL)
	s.True(entry.Valid(time.Now()))

	s.Require().Len(entry.Payload, 2)
	s.Equal("boamp:25-1", entry.Payload[0].ID)
	s.Require().NotNil(entry.Payload[0].BuyerID)
	s.Equal("dga", *entry.Payload[0].BuyerID)
	s.Require().NotNil(entry.Payload[0].DeadlineDate)
	s.True(entry.Payload[0].DeadlineDate.Equal(time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC)))
	s.Nil(entry.Payload[1].BuyerID)
	s.Nil(entry.Payload[1].DeadlineDate)
}

func (s *CacheStoreIntegrationSuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, "absent")
	s.ErrorIs(err, cache.ErrNoEntry)
}

func (s *CacheStoreIntegrationSuite) TestPutReplacesWholesale() {
	s.Require().NoError(s.store.Put(s.ctx, "boamp", s.payload(), time.Hour))
	s.Require().NoError(s.store.Put(s.ctx, "boamp", s.payload()[:1], time.Hour))

	entry, err := s.store.Get(s.ctx, "boamp")
	s.Require().NoError(err)
	s.Len(entry.Payload, 1)
	s.Equal(1, entry.RecordCount)
}

func (s *CacheStoreIntegrationSuite) TestInvalidate() {
	s.Require().NoError(s.store.Put(s.ctx, "boamp", s.payload(), time.Hour))
	s.Require().NoError(s.store.Invalidate(s.ctx, "boamp"))

	_, err := s.store.Get(s.ctx, "boamp")
	s.ErrorIs(err, cache.ErrNoEntry)

	var count int
	s.Require().NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM listing_cache"))
	s.Equal(0, count)
}

func (s *CacheStoreIntegrationSuite) TestKeysIndependent() {
	s.Require().NoError(s.store.Put(s.ctx, "boamp", s.payload(), time.Hour))
	s.Require().NoError(s.store.Put(s.ctx, "place", s.payload()[:1], 7*24*time.Hour))

	s.Require().NoError(s.store.Invalidate(s.ctx, "boamp"))

	entry, err := s.store.Get(s.ctx, "place")
	s.Require().NoError(err)
	s.Len(entry.Payload, 1)
	s.Equal(7*24*time.Hour, entry.TTL)
}

func (s *CacheStoreIntegrationSuite) TestPayloadOrderPreserved() {
	s.Require().NoError(s.store.Put(s.ctx, "boamp", s.payload(), time.Hour))

	entry, err := s.store.Get(s.ctx, "boamp")
	s.Require().NoError(err)
	s.Equal("boamp:25-1", entry.Payload[0].ID)
	s.Equal("boamp:25-2", entry.Payload[1].ID)
}
