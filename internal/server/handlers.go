package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tender_watch/internal/domain"
	"tender_watch/internal/service"
)

type listingResponse struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	BuyerName       string     `json:"buyerName"`
	BuyerID         *string    `json:"buyerId,omitempty"`
	PublicationDate time.Time  `json:"publicationDate"`
	DeadlineDate    *time.Time `json:"deadlineDate,omitempty"`
	ProcedureType   *string    `json:"procedureType,omitempty"`
	Nature          *string    `json:"nature,omitempty"`
	SourceID        string     `json:"sourceId"`
	Urgency         string     `json:"urgency"`
	OriginURL       string     `json:"originUrl,omitempty"`
}

type sourceStatusResponse struct {
	SourceID string    `json:"sourceId"`
	Count    int       `json:"count"`
	CachedAt time.Time `json:"cachedAt"`
	Stale    bool      `json:"stale"`
	Error    string    `json:"error,omitempty"`
}

type listingsResponse struct {
	Listings          []listingResponse      `json:"listings"`
	Count             int                    `json:"count"`
	Sources           []sourceStatusResponse `json:"sources"`
	DuplicatesRemoved int                    `json:"duplicatesRemoved"`
}

type buyerResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Code        string `json:"code"`
	Tutelle     string `json:"tutelle"`
}

type buyerViewResponse struct {
	buyerResponse
	ActiveCount int `json:"activeCount"`
	UrgentCount int `json:"urgentCount"`
}

type buyerStatsResponse struct {
	Active int `json:"active"`
	Urgent int `json:"urgent"`
	Medium int `json:"medium"`
}

type buyerDetailResponse struct {
	Buyer    buyerResponse      `json:"buyer"`
	Listings []listingResponse  `json:"listings"`
	Stats    buyerStatsResponse `json:"stats"`
}

type cacheEntryResponse struct {
	Key         string    `json:"key"`
	LastUpdated time.Time `json:"lastUpdated"`
	TTLSeconds  int       `json:"ttlSeconds"`
	RecordCount int       `json:"recordCount"`
}

type invalidateResponse struct {
	Invalidated bool                 `json:"invalidated"`
	Before      []cacheEntryResponse `json:"before"`
	After       []cacheEntryResponse `json:"after"`
}

func toListingResponse(l domain.Listing) listingResponse {
	return listingResponse{
		ID:              l.ID,
		Title:           l.Title,
		BuyerName:       l.BuyerName,
		BuyerID:         l.BuyerID,
		PublicationDate: l.PublicationDate,
		DeadlineDate:    l.DeadlineDate,
		ProcedureType:   l.ProcedureType,
		Nature:          l.Nature,
		SourceID:        l.SourceID,
		Urgency:         string(l.Urgency),
		OriginURL:       l.OriginURL,
	}
}

func toListingResponses(listings []domain.Listing) []listingResponse {
	out := make([]listingResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, toListingResponse(l))
	}
	return out
}

func toBuyerResponse(e domain.BuyerEntity) buyerResponse {
	return buyerResponse{
		ID:          e.ID,
		DisplayName: e.DisplayName,
		Code:        e.Code,
		Tutelle:     e.Tutelle,
	}
}

func toCacheEntryResponses(entries []domain.CacheEntry) []cacheEntryResponse {
	out := make([]cacheEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, cacheEntryResponse{
			Key:         e.Key,
			LastUpdated: e.LastUpdated,
			TTLSeconds:  int(e.TTL.Seconds()),
			RecordCount: e.RecordCount,
		})
	}
	return out
}

func (s *Server) handleListings(c *gin.Context) {
	includeSecondary := true
	switch c.Query("source") {
	case "", "all":
	case "primary-only":
		includeSecondary = false
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "source must be all or primary-only"})
		return
	}

	agg, err := s.service.GetAll(c.Request.Context(), includeSecondary)
	if err != nil {
		s.logger.Error("aggregation failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "no data available from any source"})
		return
	}

	statuses := make([]sourceStatusResponse, 0, len(agg.Sources))
	for _, st := range agg.Sources {
		statuses = append(statuses, sourceStatusResponse{
			SourceID: st.SourceID,
			Count:    st.Count,
			CachedAt: st.CachedAt,
			Stale:    st.Stale,
			Error:    st.Err,
		})
	}

	c.JSON(http.StatusOK, listingsResponse{
		Listings:          toListingResponses(agg.Listings),
		Count:             len(agg.Listings),
		Sources:           statuses,
		DuplicatesRemoved: agg.DuplicatesRemoved,
	})
}

func (s *Server) handleBuyers(c *gin.Context) {
	views, err := s.service.Buyers(c.Request.Context(), c.Query("group"), c.Query("search"))
	if err != nil {
		s.logger.Error("buyer directory failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "no data available from any source"})
		return
	}

	out := make([]buyerViewResponse, 0, len(views))
	for _, v := range views {
		out = append(out, buyerViewResponse{
			buyerResponse: toBuyerResponse(v.Entity),
			ActiveCount:   v.ActiveCount,
			UrgentCount:   v.UrgentCount,
		})
	}
	c.JSON(http.StatusOK, gin.H{"buyers": out, "count": len(out)})
}

func (s *Server) handleBuyerByID(c *gin.Context) {
	detail, err := s.service.BuyerByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrUnknownBuyer) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown buyer"})
			return
		}
		s.logger.Error("buyer detail failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "no data available from any source"})
		return
	}

	c.JSON(http.StatusOK, buyerDetailResponse{
		Buyer:    toBuyerResponse(detail.Entity),
		Listings: toListingResponses(detail.Listings),
		Stats: buyerStatsResponse{
			Active: detail.Stats.Active,
			Urgent: detail.Stats.Urgent,
			Medium: detail.Stats.Medium,
		},
	})
}

func (s *Server) handleInvalidate(c *gin.Context) {
	if s.adminSecret == "" || c.Query("key") != s.adminSecret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid key"})
		return
	}

	ctx := c.Request.Context()
	before := s.service.CacheStats(ctx)

	if err := s.service.InvalidateAll(ctx); err != nil {
		s.logger.Error("cache invalidation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalidation failed"})
		return
	}

	c.JSON(http.StatusOK, invalidateResponse{
		Invalidated: true,
		Before:      toCacheEntryResponses(before),
		After:       toCacheEntryResponses(s.service.CacheStats(ctx)),
	})
}
