package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/beamhq/adgallery/internal/domain"
	"github.com/beamhq/adgallery/internal/logger"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100

	defaultScoreThreshold = 0.18
	defaultCandidateLimit = 100
)

// VectorMatcher performs similarity lookups against the vector engine.
type VectorMatcher interface {
	MatchByVector(ctx context.Context, vector domain.Vector, threshold float32, limit int) ([]domain.SimilarityMatch, error)
}

// ImageStore provides priority-ordered access to the catalog.
type ImageStore interface {
	List(ctx context.Context, limit, offset int, searchQuery string) ([]domain.ImageRecord, error)
	GetByIDsByPriority(ctx context.Context, ids []int64) ([]domain.ImageRecord, error)
	GetByID(ctx context.Context, id int64) (*domain.ImageRecord, error)
}

// SearchConfig holds configuration for the search gateway.
type SearchConfig struct {
	ScoreThreshold float32
	CandidateLimit int
}

// SearchService is the semantic search gateway: it turns a text query into
// an embedding, asks the vector engine for a candidate set, and joins the
// candidates against the catalog for display.
type SearchService struct {
	embedding      EmbeddingProvider
	matcher        VectorMatcher
	images         ImageStore
	scoreThreshold float32
	candidateLimit int
}

// NewSearchService creates a new search gateway.
// Parameters:
//   - embedding: embedding provider for query text.
//   - matcher: vector similarity lookup.
//   - images: catalog store.
//   - cfg: threshold and candidate cap settings; nil uses defaults.
// Returns:
//   - *SearchService: initialized service.
func NewSearchService(embedding EmbeddingProvider, matcher VectorMatcher, images ImageStore, cfg *SearchConfig) *SearchService {
	scoreThreshold := float32(defaultScoreThreshold)
	candidateLimit := defaultCandidateLimit
	if cfg != nil {
		if cfg.ScoreThreshold > 0 {
			scoreThreshold = cfg.ScoreThreshold
		}
		if cfg.CandidateLimit > 0 {
			candidateLimit = cfg.CandidateLimit
		}
	}
	return &SearchService{
		embedding:      embedding,
		matcher:        matcher,
		images:         images,
		scoreThreshold: scoreThreshold,
		candidateLimit: candidateLimit,
	}
}

// SearchResponse is the paginated search result.
type SearchResponse struct {
	Images     []domain.ImageRecord `json:"images"`
	HasMore    bool                 `json:"hasMore"`
	TotalCount int                  `json:"totalCount"`
}

// Search performs a semantic search over the catalog.
//
// The candidate cap is independent of the requested page size: the gateway
// over-fetches once and paginates over a stable candidate set instead of
// re-querying the engine per page. Similarity determines membership in the
// result set; display priority determines order within it.
//
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - query: non-empty search text.
//   - page: 1-indexed page number; values below 1 are clamped to 1.
//   - perPage: page size; non-positive uses the default, large values are capped.
// Returns:
//   - *SearchResponse: page of records plus pagination metadata.
//   - error: ErrEmptyQuery or a wrapped downstream error.
func (s *SearchService) Search(ctx context.Context, query string, page, perPage int) (*SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	ctx = logger.SetComponent(ctx, "search")
	logger.CtxInfo(ctx, "Performing semantic search: query=%q, page=%d, per_page=%d", query, page, perPage)

	queryEmbedding, err := s.embedding.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	matches, err := s.matcher.MatchByVector(ctx, queryEmbedding, s.scoreThreshold, s.candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search embeddings: %w", err)
	}

	// No matches is an empty result, not an error
	if len(matches) == 0 {
		return &SearchResponse{
			Images:     []domain.ImageRecord{},
			HasMore:    false,
			TotalCount: 0,
		}, nil
	}

	ids := make([]int64, len(matches))
	for i, match := range matches {
		ids[i] = match.ImageID
	}

	candidates, err := s.images.GetByIDsByPriority(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch matched images: %w", err)
	}

	offset := (page - 1) * perPage
	pageImages := sliceCandidates(candidates, offset, perPage)

	logger.With(logger.Fields{logger.FieldCount: len(matches)}).
		Info(ctx, "Semantic search completed: query=%q, returned=%d", query, len(pageImages))

	// hasMore and totalCount describe the candidate set, not the catalog
	return &SearchResponse{
		Images:     pageImages,
		HasMore:    len(matches) > offset+perPage,
		TotalCount: len(matches),
	}, nil
}

// sliceCandidates returns the [offset, offset+perPage) window of the
// priority-ordered candidate list, clamped to its bounds.
func sliceCandidates(candidates []domain.ImageRecord, offset, perPage int) []domain.ImageRecord {
	if offset >= len(candidates) {
		return []domain.ImageRecord{}
	}
	end := offset + perPage
	if end > len(candidates) {
		end = len(candidates)
	}
	return candidates[offset:end]
}
