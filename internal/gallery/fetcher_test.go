package gallery

import (
	"context"
	"testing"

	"github.com/beamhq/adgallery/internal/domain"
	"github.com/beamhq/adgallery/internal/service"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) (domain.Vector, error) {
	return domain.Vector{0.1, 0.2}, nil
}

type stubMatcher struct {
	matches []domain.SimilarityMatch
}

func (s stubMatcher) MatchByVector(ctx context.Context, vector domain.Vector, threshold float32, limit int) ([]domain.SimilarityMatch, error) {
	return s.matches, nil
}

type stubImageStore struct {
	records []domain.ImageRecord
}

func (s stubImageStore) List(ctx context.Context, limit, offset int, searchQuery string) ([]domain.ImageRecord, error) {
	if offset >= len(s.records) {
		return []domain.ImageRecord{}, nil
	}
	end := offset + limit
	if end > len(s.records) {
		end = len(s.records)
	}
	return s.records[offset:end], nil
}

func (s stubImageStore) GetByIDsByPriority(ctx context.Context, ids []int64) ([]domain.ImageRecord, error) {
	out := make([]domain.ImageRecord, 0, len(ids))
	for _, record := range s.records {
		for _, id := range ids {
			if record.ID == id {
				out = append(out, record)
			}
		}
	}
	return out, nil
}

func (s stubImageStore) GetByID(ctx context.Context, id int64) (*domain.ImageRecord, error) {
	for _, record := range s.records {
		if record.ID == id {
			return &record, nil
		}
	}
	return nil, context.Canceled
}

// The adapter drives a controller against the real service layer.
func TestServiceFetcherDrivesController(t *testing.T) {
	records := make([]domain.ImageRecord, 6)
	for i := range records {
		records[i] = domain.ImageRecord{ID: int64(i + 1), Priority: 100 - i}
	}
	store := stubImageStore{records: records}

	searchService := service.NewSearchService(
		stubEmbedder{},
		stubMatcher{matches: []domain.SimilarityMatch{
			{ImageID: 2, Score: 0.9},
			{ImageID: 5, Score: 0.8},
		}},
		store,
		nil,
	)
	catalogService := service.NewCatalogService(store, nil)

	fetcher := NewServiceFetcher(searchService, catalogService)
	c := NewController(fetcher, nil, Options{PerPage: 4})

	if err := c.Mount(context.Background()); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	if got := len(c.Results()); got != 4 {
		t.Errorf("Catalog results: got %d, want 4", got)
	}
	if got := c.State(); got != StateReady {
		t.Errorf("State: got %q, want %q", got, StateReady)
	}

	if err := c.SetQuery(context.Background(), "bold typography"); err != nil {
		t.Fatalf("SetQuery failed: %v", err)
	}
	results := c.Results()
	if len(results) != 2 {
		t.Fatalf("Semantic results: got %d, want 2", len(results))
	}
	if results[0].ID != 2 || results[1].ID != 5 {
		t.Errorf("Result IDs: got %d, %d, want 2, 5", results[0].ID, results[1].ID)
	}
	if got := c.State(); got != StateExhausted {
		t.Errorf("State: got %q, want %q", got, StateExhausted)
	}
	if c.TotalCount() != 2 {
		t.Errorf("TotalCount: got %d, want 2", c.TotalCount())
	}
}
