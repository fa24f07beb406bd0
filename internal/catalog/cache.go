package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/theLastOfCats/manhwa-go-server/internal/model"
	"golang.org/x/sync/singleflight"
)

// Cached serves repeat manga and search lookups from memory and collapses
// concurrent identical lookups into one upstream call. Chapter data is
// passed through.
type Cached struct {
	next   Client
	ttl    time.Duration
	manga  *ristretto.Cache[string, *model.Manga]
	pages  *ristretto.Cache[string, *model.MangaPage]
	flight singleflight.Group
}

func NewCached(next Client, maxItems int64, ttl time.Duration) (*Cached, error) {
	manga, err := ristretto.NewCache(&ristretto.Config[string, *model.Manga]{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create manga cache: %w", err)
	}

	pages, err := ristretto.NewCache(&ristretto.Config[string, *model.MangaPage]{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		manga.Close()
		return nil, fmt.Errorf("create search cache: %w", err)
	}

	return &Cached{next: next, ttl: ttl, manga: manga, pages: pages}, nil
}

func (c *Cached) Close() {
	c.manga.Close()
	c.pages.Close()
}

func (c *Cached) GetManga(ctx context.Context, id string) (*model.Manga, error) {
	if m, ok := c.manga.Get(id); ok {
		return m, nil
	}

	v, err := c.share(ctx, "manga:"+id, func(ctx context.Context) (any, error) {
		m, err := c.next.GetManga(ctx, id)
		if err != nil {
			return nil, err
		}
		c.manga.SetWithTTL(id, m, 1, c.ttl)
		c.manga.Wait()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Manga), nil
}

func (c *Cached) Search(ctx context.Context, q model.SearchQuery) (*model.MangaPage, error) {
	key := fmt.Sprintf("%s|%d|%d|%s", q.Title, q.Limit, q.Offset, q.Order)
	if p, ok := c.pages.Get(key); ok {
		return p, nil
	}

	v, err := c.share(ctx, "search:"+key, func(ctx context.Context) (any, error) {
		p, err := c.next.Search(ctx, q)
		if err != nil {
			return nil, err
		}
		c.pages.SetWithTTL(key, p, 1, c.ttl)
		c.pages.Wait()
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.MangaPage), nil
}

// share runs fn once for all concurrent callers of key. fn ignores the
// cancellation of whichever caller started it. Each caller stops waiting
// when its own ctx is done.
func (c *Cached) share(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := c.flight.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cached) Chapters(ctx context.Context, mangaID, lang string, limit, offset int) (*model.ChapterPage, error) {
	return c.next.Chapters(ctx, mangaID, lang, limit, offset)
}

func (c *Cached) ChapterImages(ctx context.Context, chapterID string) (*model.ChapterImages, error) {
	return c.next.ChapterImages(ctx, chapterID)
}
