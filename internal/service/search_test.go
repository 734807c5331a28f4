package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/beamhq/adgallery/internal/domain"
)

type fakeEmbedder struct {
	vector domain.Vector
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) (domain.Vector, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type fakeMatcher struct {
	matches []domain.SimilarityMatch
	err     error

	gotThreshold float32
	gotLimit     int
}

func (f *fakeMatcher) MatchByVector(ctx context.Context, vector domain.Vector, threshold float32, limit int) ([]domain.SimilarityMatch, error) {
	f.gotThreshold = threshold
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

type fakeImageStore struct {
	records map[int64]domain.ImageRecord
	listErr error
	byIDErr error
}

func (f *fakeImageStore) List(ctx context.Context, limit, offset int, searchQuery string) ([]domain.ImageRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	all := f.sorted()
	if offset >= len(all) {
		return []domain.ImageRecord{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f *fakeImageStore) GetByIDsByPriority(ctx context.Context, ids []int64) ([]domain.ImageRecord, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	out := make([]domain.ImageRecord, 0, len(ids))
	for _, id := range ids {
		if record, ok := f.records[id]; ok {
			out = append(out, record)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out, nil
}

func (f *fakeImageStore) GetByID(ctx context.Context, id int64) (*domain.ImageRecord, error) {
	record, ok := f.records[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return &record, nil
}

func (f *fakeImageStore) sorted() []domain.ImageRecord {
	all := make([]domain.ImageRecord, 0, len(f.records))
	for _, record := range f.records {
		all = append(all, record)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Priority > all[j].Priority
	})
	return all
}

// storeWithRecords builds a store with n records; record i has ID i+1 and
// priority descending with ID so priority order equals ID order.
func storeWithRecords(n int) *fakeImageStore {
	records := make(map[int64]domain.ImageRecord, n)
	for i := 0; i < n; i++ {
		id := int64(i + 1)
		records[id] = domain.ImageRecord{
			ID:        id,
			BrandName: fmt.Sprintf("brand-%d", id),
			Priority:  1000 - i,
		}
	}
	return &fakeImageStore{records: records}
}

func matchesFor(n int) []domain.SimilarityMatch {
	matches := make([]domain.SimilarityMatch, n)
	for i := range matches {
		matches[i] = domain.SimilarityMatch{ImageID: int64(i + 1), Score: 0.9}
	}
	return matches
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	svc := NewSearchService(&fakeEmbedder{}, &fakeMatcher{}, storeWithRecords(0), nil)

	for _, query := range []string{"", "   "} {
		if _, err := svc.Search(context.Background(), query, 1, 20); !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("Search(%q): got %v, want ErrEmptyQuery", query, err)
		}
	}
}

func TestSearchPagination(t *testing.T) {
	testCases := []struct {
		name       string
		candidates int
		page       int
		perPage    int
		wantCount  int
		wantMore   bool
	}{
		{
			name:       "first page of large candidate set",
			candidates: 37,
			page:       1,
			perPage:    20,
			wantCount:  20,
			wantMore:   true,
		},
		{
			name:       "final partial page",
			candidates: 37,
			page:       2,
			perPage:    20,
			wantCount:  17,
			wantMore:   false,
		},
		{
			name:       "page past the end",
			candidates: 37,
			page:       3,
			perPage:    20,
			wantCount:  0,
			wantMore:   false,
		},
		{
			name:       "exact boundary reports no more",
			candidates: 40,
			page:       2,
			perPage:    20,
			wantCount:  20,
			wantMore:   false,
		},
		{
			name:       "page below one clamps to one",
			candidates: 10,
			page:       0,
			perPage:    5,
			wantCount:  5,
			wantMore:   true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewSearchService(
				&fakeEmbedder{vector: domain.Vector{0.1, 0.2}},
				&fakeMatcher{matches: matchesFor(tc.candidates)},
				storeWithRecords(tc.candidates),
				nil,
			)

			resp, err := svc.Search(context.Background(), "running shoes", tc.page, tc.perPage)
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			if len(resp.Images) != tc.wantCount {
				t.Errorf("Images: got %d, want %d", len(resp.Images), tc.wantCount)
			}
			if resp.HasMore != tc.wantMore {
				t.Errorf("HasMore: got %v, want %v", resp.HasMore, tc.wantMore)
			}
			if resp.TotalCount != tc.candidates {
				t.Errorf("TotalCount: got %d, want %d", resp.TotalCount, tc.candidates)
			}
		})
	}
}

func TestSearchOrdersByPriority(t *testing.T) {
	store := &fakeImageStore{records: map[int64]domain.ImageRecord{
		1: {ID: 1, Priority: 10},
		2: {ID: 2, Priority: 90},
		3: {ID: 3, Priority: 50},
	}}
	// Similarity order differs from priority order
	matcher := &fakeMatcher{matches: []domain.SimilarityMatch{
		{ImageID: 1, Score: 0.99},
		{ImageID: 3, Score: 0.7},
		{ImageID: 2, Score: 0.3},
	}}
	svc := NewSearchService(&fakeEmbedder{vector: domain.Vector{0.1}}, matcher, store, nil)

	resp, err := svc.Search(context.Background(), "query", 1, 20)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	wantOrder := []int64{2, 3, 1}
	if len(resp.Images) != len(wantOrder) {
		t.Fatalf("Images: got %d, want %d", len(resp.Images), len(wantOrder))
	}
	for i, want := range wantOrder {
		if resp.Images[i].ID != want {
			t.Errorf("Images[%d].ID: got %d, want %d", i, resp.Images[i].ID, want)
		}
	}
}

func TestSearchEmptyMatchesIsNotAnError(t *testing.T) {
	svc := NewSearchService(
		&fakeEmbedder{vector: domain.Vector{0.1}},
		&fakeMatcher{matches: nil},
		storeWithRecords(5),
		nil,
	)

	resp, err := svc.Search(context.Background(), "obscure query", 1, 20)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(resp.Images) != 0 || resp.HasMore || resp.TotalCount != 0 {
		t.Errorf("Want empty response, got images=%d hasMore=%v total=%d",
			len(resp.Images), resp.HasMore, resp.TotalCount)
	}
}

func TestSearchPropagatesDownstreamErrors(t *testing.T) {
	embedErr := errors.New("platform down")
	matchErr := errors.New("engine down")
	fetchErr := errors.New("database down")

	testCases := []struct {
		name    string
		embed   *fakeEmbedder
		matcher *fakeMatcher
		store   *fakeImageStore
		want    error
	}{
		{
			name:    "embedding failure",
			embed:   &fakeEmbedder{err: embedErr},
			matcher: &fakeMatcher{},
			store:   storeWithRecords(0),
			want:    embedErr,
		},
		{
			name:    "matcher failure",
			embed:   &fakeEmbedder{vector: domain.Vector{0.1}},
			matcher: &fakeMatcher{err: matchErr},
			store:   storeWithRecords(0),
			want:    matchErr,
		},
		{
			name:    "catalog failure",
			embed:   &fakeEmbedder{vector: domain.Vector{0.1}},
			matcher: &fakeMatcher{matches: matchesFor(3)},
			store:   &fakeImageStore{byIDErr: fetchErr},
			want:    fetchErr,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewSearchService(tc.embed, tc.matcher, tc.store, nil)
			_, err := svc.Search(context.Background(), "query", 1, 20)
			if !errors.Is(err, tc.want) {
				t.Errorf("Search: got %v, want wrapped %v", err, tc.want)
			}
		})
	}
}

func TestSearchPassesConfiguredThresholdAndLimit(t *testing.T) {
	matcher := &fakeMatcher{}
	svc := NewSearchService(
		&fakeEmbedder{vector: domain.Vector{0.1}},
		matcher,
		storeWithRecords(0),
		&SearchConfig{ScoreThreshold: 0.42, CandidateLimit: 55},
	)

	if _, err := svc.Search(context.Background(), "query", 1, 20); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if matcher.gotThreshold != 0.42 {
		t.Errorf("Threshold: got %v, want 0.42", matcher.gotThreshold)
	}
	if matcher.gotLimit != 55 {
		t.Errorf("Limit: got %d, want 55", matcher.gotLimit)
	}
}

func TestSearchClampsPerPage(t *testing.T) {
	svc := NewSearchService(
		&fakeEmbedder{vector: domain.Vector{0.1}},
		&fakeMatcher{matches: matchesFor(100)},
		storeWithRecords(100),
		&SearchConfig{CandidateLimit: 200},
	)

	resp, err := svc.Search(context.Background(), "query", 1, 500)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(resp.Images) != maxPerPage {
		t.Errorf("Images: got %d, want capped at %d", len(resp.Images), maxPerPage)
	}
}
