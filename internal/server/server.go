// Package server exposes the aggregated catalogue over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tender_watch/internal/domain"
	"tender_watch/internal/service"
)

// Service is the aggregation surface the handlers drive.
type Service interface {
	GetAll(ctx context.Context, includeSecondary bool) (*domain.Aggregate, error)
	Buyers(ctx context.Context, group, search string) ([]service.BuyerView, error)
	BuyerByID(ctx context.Context, buyerID string) (*service.BuyerDetail, error)
	CacheStats(ctx context.Context) []domain.CacheEntry
	InvalidateAll(ctx context.Context) error
}

// Pinger reports backing-store availability for the health endpoint.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	service     Service
	db          Pinger
	adminSecret string
	logger      *slog.Logger
}

func New(svc Service, db Pinger, adminSecret string, logger *slog.Logger) *Server {
	return &Server{
		service:     svc,
		db:          db,
		adminSecret: adminSecret,
		logger:      logger,
	}
}

// Router builds the gin engine with middleware and routes attached.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(s.logger))

	router.GET("/listings", s.handleListings)
	router.GET("/buyers", s.handleBuyers)
	router.GET("/buyers/:id", s.handleBuyerByID)
	router.POST("/cache/invalidate", s.handleInvalidate)

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"error":  err.Error(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
