package domain

import "time"

// SourceStatus describes the freshness of one source's contribution to
// an aggregation response.
type SourceStatus struct {
	SourceID string
	Count    int
	CachedAt time.Time
	Stale    bool
	Err      string // empty when the source contributed normally
}

// Aggregate is the merged catalogue plus per-source freshness metadata.
type Aggregate struct {
	Listings          []Listing
	Sources           []SourceStatus
	DuplicatesRemoved int
}

// BuyerStats is the three-bucket deadline summary for one buyer.
type BuyerStats struct {
	Active int // listings with a deadline still open or none at all
	Urgent int // deadline within 7 days
	Medium int // deadline within 7 to 30 days
}
