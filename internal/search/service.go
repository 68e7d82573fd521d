package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sha1n/docindex/internal/domain"
	"github.com/sha1n/docindex/internal/metrics"
)

// Engine executes a search request against the configured index.
// Implementations return an error wrapping domain.ErrIndexNotFound when the
// index does not exist.
type Engine interface {
	Name() string
	Search(ctx context.Context, req domain.SearchRequest) ([]domain.SearchResult, error)
}

// Service validates search requests and runs them against an Engine.
type Service struct {
	engine Engine
	logger *slog.Logger
}

// NewService creates a search service.
func NewService(engine Engine, logger *slog.Logger) *Service {
	return &Service{
		engine: engine,
		logger: logger,
	}
}

// Basic runs a plain text search ordered by relevance.
func (s *Service) Basic(ctx context.Context, queryText string, limit int) ([]domain.SearchResult, error) {
	return s.Search(ctx, domain.SearchRequest{
		QueryText: &queryText,
		Limit:     limit,
	})
}

// Search runs req. A missing index yields an empty result list, not an error.
func (s *Service) Search(ctx context.Context, req domain.SearchRequest) ([]domain.SearchResult, error) {
	req = req.WithDefaults()
	engineName := s.engine.Name()

	if err := req.Validate(); err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(engineName, metrics.StatusInvalid).Inc()
		return nil, err
	}

	start := time.Now()
	results, err := s.engine.Search(ctx, req)
	metrics.SearchDuration.WithLabelValues(engineName).Observe(time.Since(start).Seconds())

	if errors.Is(err, domain.ErrIndexNotFound) {
		metrics.SearchRequestsTotal.WithLabelValues(engineName, metrics.StatusNoIndex).Inc()
		s.logger.WarnContext(ctx, "Index does not exist, returning no results", "engine", engineName, "error", err)
		return []domain.SearchResult{}, nil
	}
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(engineName, metrics.StatusError).Inc()
		return nil, fmt.Errorf("search failed: %w", err)
	}

	if results == nil {
		results = []domain.SearchResult{}
	}

	metrics.SearchRequestsTotal.WithLabelValues(engineName, metrics.StatusOK).Inc()
	metrics.SearchResults.Observe(float64(len(results)))
	s.logger.DebugContext(ctx, "Search complete",
		"engine", engineName,
		"results", len(results),
		"sort_by", req.SortBy,
		"sort_order", req.SortOrder,
		"duration", time.Since(start),
	)

	return results, nil
}
