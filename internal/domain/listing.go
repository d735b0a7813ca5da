package domain

import "time"

// Urgency buckets a listing by how close its response deadline is.
type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyCritical Urgency = "critical"
)

// Listing is the canonical representation of one tender, whichever
// source produced it. IDs are unique within a source only; cross-source
// duplicates are resolved by the dedup package.
type Listing struct {
	ID              string     // source-qualified, e.g. "boamp:25-118902"
	Title           string
	BuyerName       string  // raw, as supplied by the source
	BuyerID         *string // resolved registry entry, if any
	PublicationDate time.Time
	DeadlineDate    *time.Time
	ProcedureType   *string
	Nature          *string
	SourceID        string // which fetcher produced it
	Urgency         Urgency
	OriginURL       string
}

// BuyerEntity is one known procuring entity from the static registry.
type BuyerEntity struct {
	ID          string
	DisplayName string
	Code        string // short mnemonic, e.g. "DGA"
	Tutelle     string // oversight body group tag
}

// CacheEntry is one source's cached result set plus its metadata row.
type CacheEntry struct {
	Key         string
	Payload     []Listing
	LastUpdated time.Time
	TTL         time.Duration
	RecordCount int
}

// Valid reports whether the entry is still within its TTL at the given
// instant.
func (e *CacheEntry) Valid(now time.Time) bool {
	return now.Before(e.LastUpdated.Add(e.TTL))
}
