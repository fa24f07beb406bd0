package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/theLastOfCats/manhwa-go-server/internal/apperr"
	"github.com/theLastOfCats/manhwa-go-server/internal/db"
	"github.com/theLastOfCats/manhwa-go-server/internal/model"
)

// SetupTestDB creates a file-backed SQLite DB with schema in a temp dir.
// A file is used instead of a shared in-memory DB so that concurrent
// writers go through WAL locking the same way production does.
func SetupTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to init test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})
	return database
}

var userSeq atomic.Int64

// CreateUser inserts a reader with a unique name and returns it.
func CreateUser(t *testing.T, database *db.DB) *model.User {
	t.Helper()

	n := userSeq.Add(1)
	u := &model.User{
		Username:     fmt.Sprintf("reader%d", n),
		Email:        fmt.Sprintf("reader%d@example.com", n),
		PasswordHash: "hash",
	}
	if err := database.Queries().CreateUser(context.Background(), u); err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	return u
}

// FakeCatalog serves manga from an in-memory map and counts lookups.
type FakeCatalog struct {
	mu      sync.Mutex
	manga   map[string]model.Manga
	Err     error
	Lookups atomic.Int64
}

func NewFakeCatalog(manga ...model.Manga) *FakeCatalog {
	c := &FakeCatalog{manga: make(map[string]model.Manga)}
	for _, m := range manga {
		c.manga[m.ID] = m
	}
	return c
}

func (c *FakeCatalog) Add(m model.Manga) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.manga[m.ID] = m
}

func (c *FakeCatalog) GetManga(ctx context.Context, id string) (*model.Manga, error) {
	c.Lookups.Add(1)
	if c.Err != nil {
		return nil, c.Err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.manga[id]
	if !ok {
		return nil, apperr.NotFound("Manhwa not found")
	}
	return &m, nil
}

func (c *FakeCatalog) Search(ctx context.Context, q model.SearchQuery) (*model.MangaPage, error) {
	if c.Err != nil {
		return nil, c.Err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	page := &model.MangaPage{Manga: []model.Manga{}}
	for _, m := range c.manga {
		page.Manga = append(page.Manga, m)
	}
	page.Total = len(page.Manga)
	return page, nil
}

func (c *FakeCatalog) Chapters(ctx context.Context, mangaID, lang string, limit, offset int) (*model.ChapterPage, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return &model.ChapterPage{Chapters: []model.Chapter{}}, nil
}

func (c *FakeCatalog) ChapterImages(ctx context.Context, chapterID string) (*model.ChapterImages, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return &model.ChapterImages{Pages: []string{}, PagesHQ: []string{}}, nil
}
