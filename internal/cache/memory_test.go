package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tender_watch/internal/domain"
)

func TestMemory_PutThenGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	payload := []domain.Listing{{ID: "boamp:1", Title: "Maintenance radar"}}
	require.NoError(t, m.Put(ctx, "boamp", payload, time.Hour))

	entry, err := m.Get(ctx, "boamp")
	require.NoError(t, err)
	assert.Equal(t, "boamp", entry.Key)
	assert.Equal(t, payload, entry.Payload)
	assert.Equal(t, 1, entry.RecordCount)
	assert.True(t, entry.Valid(time.Now()))
}

func TestMemory_GetMissing(t *testing.T) {
	m := NewMemory()

	_, err := m.Get(context.Background(), "nope")

	assert.ErrorIs(t, err, ErrNoEntry)
}

func TestMemory_ValidityExpires(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	now := time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Put(ctx, "boamp", nil, time.Hour))

	entry, err := m.Get(ctx, "boamp")
	require.NoError(t, err)
	assert.True(t, entry.Valid(now))
	assert.True(t, entry.Valid(now.Add(time.Hour-time.Second)))
	assert.False(t, entry.Valid(now.Add(time.Hour)))
	assert.False(t, entry.Valid(now.Add(2*time.Hour)))
}

func TestMemory_Invalidate(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "boamp", nil, time.Hour))
	require.NoError(t, m.Invalidate(ctx, "boamp"))

	_, err := m.Get(ctx, "boamp")
	assert.ErrorIs(t, err, ErrNoEntry)

	// Invalidating an absent key is fine.
	assert.NoError(t, m.Invalidate(ctx, "boamp"))
}

func TestMemory_WholesaleReplace(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "boamp", []domain.Listing{{ID: "a"}, {ID: "b"}}, time.Hour))
	require.NoError(t, m.Put(ctx, "boamp", []domain.Listing{{ID: "c"}}, time.Hour))

	entry, err := m.Get(ctx, "boamp")
	require.NoError(t, err)
	require.Len(t, entry.Payload, 1)
	assert.Equal(t, "c", entry.Payload[0].ID)
	assert.Equal(t, 1, entry.RecordCount)
}

func TestMemory_GetCopiesPayload(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "boamp", []domain.Listing{{ID: "a", Title: "t"}}, time.Hour))

	first, err := m.Get(ctx, "boamp")
	require.NoError(t, err)
	first.Payload[0].Title = "mutated"

	second, err := m.Get(ctx, "boamp")
	require.NoError(t, err)
	assert.Equal(t, "t", second.Payload[0].Title)
}
