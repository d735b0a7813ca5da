// Package boamp fetches announcements from the BOAMP open-data search
// API. The API is paginated and reports a total_count independent of
// the rows actually returned; the fetcher paginates until it has seen
// total_count records or hits the configured hard cap, and reports any
// shortfall instead of silently under-fetching.
package boamp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tender_watch/internal/domain"
	"tender_watch/internal/metrics"
)

const (
	SourceID   = "boamp"
	SourceName = "BOAMP open data"

	// UnknownBuyer substitutes a missing buyer name; the canonical
	// field is required and downstream matching treats it as
	// unmatchable free text.
	UnknownBuyer = "Unknown buyer"
)

var selectFields = strings.Join([]string{
	"idweb", "objet", "nomacheteur", "dateparution",
	"datelimitereponse", "typeprocedure", "nature", "url_avis",
}, ",")

// Config holds BOAMP source configuration.
type Config struct {
	BaseURL        string
	PageSize       int
	MaxRecords     int // pagination hard cap
	Timeout        time.Duration
	RequestDelay   time.Duration // minimum gap between page requests
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source implements service.Fetcher for the BOAMP search API.
type Source struct {
	httpClient     *http.Client
	baseURL        string
	pageSize       int
	maxRecords     int
	limiter        *rate.Limiter
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	buyers         []domain.BuyerEntity
	logger         *slog.Logger
}

// New creates a BOAMP source scoped to the given buyer entities.
func New(cfg Config, buyers []domain.BuyerEntity, logger *slog.Logger) *Source {
	delay := cfg.RequestDelay
	if delay <= 0 {
		delay = time.Second
	}
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        cfg.BaseURL,
		pageSize:       cfg.PageSize,
		maxRecords:     cfg.MaxRecords,
		limiter:        rate.NewLimiter(rate.Every(delay), 1),
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		buyers:         buyers,
		logger:         logger.With("source", SourceID),
	}
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return SourceID
}

// Name returns the human-readable name.
func (s *Source) Name() string {
	return SourceName
}

// FetchListings pages through every record matching the buyer filter.
// A shortfall against the server-reported total is logged and counted,
// never swallowed: operators use it to catch under-fetching
// regressions.
func (s *Source) FetchListings(ctx context.Context) ([]domain.Listing, error) {
	filter := BuildFilter(s.buyers)

	var all []Record
	seen := make(map[string]struct{})
	totalCount := 0

	for offset := 0; ; offset += s.pageSize {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := s.fetchPage(ctx, filter, s.pageSize, offset)
		if err != nil {
			metrics.FetchErrors.WithLabelValues(SourceID).Inc()
			return nil, fmt.Errorf("fetch page at offset %d: %w", offset, err)
		}

		totalCount = resp.TotalCount

		// Records published between page fetches shift the offsets of an
		// ordered live feed, so a later page can repeat an already-seen
		// record. Only distinct ids count toward total_count, otherwise
		// the repeats would end pagination early with a zero shortfall.
		for _, r := range resp.Results {
			if r.IDWeb != "" {
				if _, dup := seen[r.IDWeb]; dup {
					metrics.SkippedRecords.WithLabelValues(SourceID, "duplicate_id").Inc()
					continue
				}
				seen[r.IDWeb] = struct{}{}
			}
			all = append(all, r)
		}

		s.logger.Debug("fetched page",
			"offset", offset,
			"records", len(resp.Results),
			"retrieved", len(all),
			"total_count", totalCount,
		)

		if len(resp.Results) == 0 || len(all) >= totalCount {
			break
		}
		if s.maxRecords > 0 && len(all) >= s.maxRecords {
			break
		}
	}

	if shortfall := totalCount - len(all); shortfall > 0 {
		metrics.FetchShortfall.WithLabelValues(SourceID).Add(float64(shortfall))
		s.logger.Warn("partial data: retrieved fewer records than source reports",
			"total_count", totalCount,
			"retrieved", len(all),
			"shortfall", shortfall,
			"filter", filter,
		)
	}

	listings := s.transform(all)
	metrics.FetchedListings.WithLabelValues(SourceID).Add(float64(len(listings)))
	return listings, nil
}

func (s *Source) fetchPage(ctx context.Context, filter string, limit, offset int) (*APIResponse, error) {
	var resp *APIResponse
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		resp, err = s.doRequest(ctx, filter, limit, offset)
		if err == nil {
			return resp, nil
		}

		if attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
}

func (s *Source) doRequest(ctx context.Context, filter string, limit, offset int) (*APIResponse, error) {
	params := url.Values{}
	params.Set("where", filter)
	params.Set("select", selectFields)
	params.Set("order_by", "dateparution desc")
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("offset", fmt.Sprintf("%d", offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "TenderWatch/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &apiResp, nil
}

// The API serves plain dates for parution and full timestamps for some
// deadline fields.
func parseDate(value string) (time.Time, error) {
	if d, err := time.Parse("2006-01-02", value); err == nil {
		return d, nil
	}
	return time.Parse(time.RFC3339, value)
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}

func (s *Source) transform(records []Record) []domain.Listing {
	listings := make([]domain.Listing, 0, len(records))

	for _, r := range records {
		if r.IDWeb == "" {
			metrics.SkippedRecords.WithLabelValues(SourceID, "missing_id").Inc()
			s.logger.Warn("skipping record without idweb")
			continue
		}

		l := domain.Listing{
			ID:       SourceID + ":" + r.IDWeb,
			SourceID: SourceID,
		}

		if r.Objet != nil && *r.Objet != "" {
			l.Title = *r.Objet
		} else {
			metrics.SkippedRecords.WithLabelValues(SourceID, "missing_title").Inc()
			s.logger.Warn("skipping record without title", "idweb", r.IDWeb)
			continue
		}

		if r.NomAcheteur != nil && *r.NomAcheteur != "" {
			l.BuyerName = *r.NomAcheteur
		} else {
			l.BuyerName = UnknownBuyer
		}

		if r.DateParution != nil {
			if d, err := parseDate(*r.DateParution); err == nil {
				l.PublicationDate = d
			} else {
				s.logger.Warn("unparseable publication date",
					"idweb", r.IDWeb,
					"value", *r.DateParution,
				)
			}
		}

		if r.DateLimite != nil {
			if d, err := parseDate(*r.DateLimite); err == nil {
				l.DeadlineDate = &d
			} else {
				s.logger.Warn("unparseable deadline date",
					"idweb", r.IDWeb,
					"value", *r.DateLimite,
				)
			}
		}

		l.ProcedureType = r.TypeProcedure
		l.Nature = r.Nature
		if r.URLAvis != nil {
			l.OriginURL = *r.URLAvis
		}

		listings = append(listings, l)
	}

	return listings
}
