package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/beamhq/adgallery/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// File-backed per-test database; :memory: does not survive GORM's
	// connection pooling
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&domain.ImageRecord{}, &KVEntry{}); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func seedImages(t *testing.T, repo *ImageRepository, records []domain.ImageRecord) {
	t.Helper()
	ctx := context.Background()
	for i := range records {
		if err := repo.Upsert(ctx, &records[i]); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}
}

func TestImageRepositoryListFiltersAndOrders(t *testing.T) {
	repo := NewImageRepository(newTestDB(t))
	seedImages(t, repo, []domain.ImageRecord{
		{OriginalID: 1, BrandName: "Acme Coffee", Industry: "Food", Priority: 10, DisplayURL: "https://cdn/1.jpg"},
		{OriginalID: 2, BrandName: "Globex", Industry: "Tech", Priority: 90, DisplayURL: "https://cdn/2.jpg"},
		{OriginalID: 3, BrandName: "Initech", Industry: "Tech", Priority: 50, DisplayURL: "https://cdn/3.jpg"},
		// No display URL: must never be listed
		{OriginalID: 4, BrandName: "Hidden", Industry: "Tech", Priority: 99},
	})
	ctx := context.Background()

	t.Run("orders by priority and hides missing display URLs", func(t *testing.T) {
		images, err := repo.List(ctx, 10, 0, "")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(images) != 3 {
			t.Fatalf("Images: got %d, want 3", len(images))
		}
		wantOrder := []string{"Globex", "Initech", "Acme Coffee"}
		for i, want := range wantOrder {
			if images[i].BrandName != want {
				t.Errorf("images[%d]: got %q, want %q", i, images[i].BrandName, want)
			}
		}
	})

	t.Run("case-insensitive brand and industry filter", func(t *testing.T) {
		byBrand, err := repo.List(ctx, 10, 0, "ACME")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(byBrand) != 1 || byBrand[0].BrandName != "Acme Coffee" {
			t.Errorf("Brand filter: got %v", byBrand)
		}

		byIndustry, err := repo.List(ctx, 10, 0, "tech")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(byIndustry) != 2 {
			t.Errorf("Industry filter: got %d records, want 2", len(byIndustry))
		}
	})

	t.Run("offset pagination", func(t *testing.T) {
		page, err := repo.List(ctx, 2, 2, "")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(page) != 1 || page[0].BrandName != "Acme Coffee" {
			t.Errorf("Offset page: got %v", page)
		}
	})
}

func TestImageRepositoryGetByIDsByPriority(t *testing.T) {
	repo := NewImageRepository(newTestDB(t))
	seedImages(t, repo, []domain.ImageRecord{
		{OriginalID: 1, BrandName: "low", Priority: 5, DisplayURL: "x"},
		{OriginalID: 2, BrandName: "high", Priority: 80, DisplayURL: "x"},
		{OriginalID: 3, BrandName: "mid", Priority: 40, DisplayURL: "x"},
	})
	ctx := context.Background()

	all, err := repo.List(ctx, 10, 0, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	ids := []int64{all[2].ID, all[0].ID} // low and high, unordered

	images, err := repo.GetByIDsByPriority(ctx, ids)
	if err != nil {
		t.Fatalf("GetByIDsByPriority failed: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("Images: got %d, want 2", len(images))
	}
	if images[0].BrandName != "high" || images[1].BrandName != "low" {
		t.Errorf("Order: got %q, %q", images[0].BrandName, images[1].BrandName)
	}

	empty, err := repo.GetByIDsByPriority(ctx, nil)
	if err != nil {
		t.Fatalf("GetByIDsByPriority failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Empty ID set: got %d records, want 0", len(empty))
	}
}

func TestImageRepositoryUpsertByOriginalID(t *testing.T) {
	repo := NewImageRepository(newTestDB(t))
	ctx := context.Background()

	first := domain.ImageRecord{OriginalID: 42, BrandName: "before", Priority: 1, DisplayURL: "x"}
	if err := repo.Upsert(ctx, &first); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	second := domain.ImageRecord{OriginalID: 42, BrandName: "after", Priority: 2, DisplayURL: "x"}
	if err := repo.Upsert(ctx, &second); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Count after re-ingest: got %d, want 1", count)
	}

	images, err := repo.List(ctx, 10, 0, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if images[0].BrandName != "after" {
		t.Errorf("BrandName: got %q, want %q", images[0].BrandName, "after")
	}
}

func TestKVRepository(t *testing.T) {
	repo := NewKVRepository(newTestDB(t))

	if _, ok, err := repo.Get("missing"); err != nil || ok {
		t.Errorf("Get missing key: got ok=%v err=%v", ok, err)
	}

	if err := repo.Set("viewed_ads_count", "7"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if value, ok, err := repo.Get("viewed_ads_count"); err != nil || !ok || value != "7" {
		t.Errorf("Get: got value=%q ok=%v err=%v", value, ok, err)
	}

	// Overwrite keeps a single row
	if err := repo.Set("viewed_ads_count", "8"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if value, _, _ := repo.Get("viewed_ads_count"); value != "8" {
		t.Errorf("Get after overwrite: got %q, want %q", value, "8")
	}
}
