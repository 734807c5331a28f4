package gallery

import (
	"context"

	"github.com/beamhq/adgallery/internal/service"
)

// ServiceFetcher adapts the search gateway and catalog fetcher to the
// controller's Fetcher interface.
type ServiceFetcher struct {
	search  *service.SearchService
	catalog *service.CatalogService
}

// NewServiceFetcher creates a Fetcher backed by the application services.
func NewServiceFetcher(search *service.SearchService, catalog *service.CatalogService) *ServiceFetcher {
	return &ServiceFetcher{search: search, catalog: catalog}
}

// Search runs the semantic path.
func (f *ServiceFetcher) Search(ctx context.Context, query string, page, perPage int) (*Page, error) {
	resp, err := f.search.Search(ctx, query, page, perPage)
	if err != nil {
		return nil, err
	}
	return fromResponse(resp), nil
}

// List runs the catalog path.
func (f *ServiceFetcher) List(ctx context.Context, page, perPage int, query string) (*Page, error) {
	resp, err := f.catalog.List(ctx, page, perPage, query)
	if err != nil {
		return nil, err
	}
	return fromResponse(resp), nil
}

func fromResponse(resp *service.SearchResponse) *Page {
	return &Page{
		Images:     resp.Images,
		HasMore:    resp.HasMore,
		TotalCount: resp.TotalCount,
	}
}
