// Package catalog talks to the MangaDex API and caches what it returns.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/theLastOfCats/manhwa-go-server/internal/apperr"
	"github.com/theLastOfCats/manhwa-go-server/internal/model"
	"go.uber.org/zap"
)

type Client interface {
	GetManga(ctx context.Context, id string) (*model.Manga, error)
	Search(ctx context.Context, q model.SearchQuery) (*model.MangaPage, error)
	Chapters(ctx context.Context, mangaID, lang string, limit, offset int) (*model.ChapterPage, error)
	ChapterImages(ctx context.Context, chapterID string) (*model.ChapterImages, error)
}

type MangaDex struct {
	BaseURL  string
	CoverURL string
	client   *http.Client
	log      *zap.Logger
}

func NewMangaDex(baseURL, coverURL string, timeout time.Duration, log *zap.Logger) *MangaDex {
	if log == nil {
		log = zap.NewNop()
	}
	return &MangaDex{
		BaseURL:  baseURL,
		CoverURL: coverURL,
		client:   &http.Client{Timeout: timeout},
		log:      log,
	}
}

type mdRelationship struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes *struct {
		FileName string `json:"fileName"`
		Name     string `json:"name"`
	} `json:"attributes"`
}

type mdManga struct {
	ID         string `json:"id"`
	Attributes struct {
		Title         map[string]string `json:"title"`
		Description   map[string]string `json:"description"`
		Status        string            `json:"status"`
		ContentRating string            `json:"contentRating"`
		UpdatedAt     string            `json:"updatedAt"`
		Tags          []struct {
			Attributes struct {
				Name map[string]string `json:"name"`
			} `json:"attributes"`
		} `json:"tags"`
	} `json:"attributes"`
	Relationships []mdRelationship `json:"relationships"`
}

type mdChapter struct {
	ID         string `json:"id"`
	Attributes struct {
		Chapter            *string `json:"chapter"`
		Title              *string `json:"title"`
		Volume             *string `json:"volume"`
		Pages              int     `json:"pages"`
		PublishAt          string  `json:"publishAt"`
		TranslatedLanguage string  `json:"translatedLanguage"`
	} `json:"attributes"`
}

func (c *MangaDex) GetManga(ctx context.Context, id string) (*model.Manga, error) {
	q := url.Values{}
	q.Add("includes[]", "cover_art")
	q.Add("includes[]", "author")

	var resp struct {
		Data mdManga `json:"data"`
	}
	if err := c.get(ctx, "/manga/"+url.PathEscape(id), q, &resp); err != nil {
		if errors.Is(err, errBadRequest) || errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("Manhwa not found")
		}
		return nil, err
	}

	m := c.format(resp.Data)
	return &m, nil
}

func (c *MangaDex) Search(ctx context.Context, sq model.SearchQuery) (*model.MangaPage, error) {
	q := url.Values{}
	if sq.Title != "" {
		q.Set("title", sq.Title)
	}
	q.Set("limit", strconv.Itoa(sq.Limit))
	q.Set("offset", strconv.Itoa(sq.Offset))
	q.Add("includes[]", "cover_art")
	q.Add("includes[]", "author")
	q.Add("contentRating[]", "safe")
	q.Add("contentRating[]", "suggestive")

	order := sq.Order
	if order == "" {
		order = model.OrderRelevance
	}
	q.Set("order["+string(order)+"]", "desc")

	var resp struct {
		Total int       `json:"total"`
		Data  []mdManga `json:"data"`
	}
	if err := c.get(ctx, "/manga", q, &resp); err != nil {
		if errors.Is(err, errBadRequest) {
			return nil, apperr.Validation("Invalid search parameters")
		}
		return nil, err
	}

	page := &model.MangaPage{Total: resp.Total, Manga: make([]model.Manga, 0, len(resp.Data))}
	for _, m := range resp.Data {
		page.Manga = append(page.Manga, c.format(m))
	}
	return page, nil
}

func (c *MangaDex) Chapters(ctx context.Context, mangaID, lang string, limit, offset int) (*model.ChapterPage, error) {
	q := url.Values{}
	q.Set("manga", mangaID)
	q.Add("translatedLanguage[]", lang)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("order[chapter]", "asc")

	var resp struct {
		Total int         `json:"total"`
		Data  []mdChapter `json:"data"`
	}
	if err := c.get(ctx, "/chapter", q, &resp); err != nil {
		if errors.Is(err, errBadRequest) {
			return nil, apperr.Validation("Invalid chapter query")
		}
		return nil, err
	}

	page := &model.ChapterPage{Total: resp.Total, Chapters: make([]model.Chapter, 0, len(resp.Data))}
	for _, ch := range resp.Data {
		page.Chapters = append(page.Chapters, model.Chapter{
			ID:          ch.ID,
			Chapter:     ch.Attributes.Chapter,
			Title:       ch.Attributes.Title,
			Pages:       ch.Attributes.Pages,
			PublishedAt: ch.Attributes.PublishAt,
			Volume:      ch.Attributes.Volume,
			Language:    ch.Attributes.TranslatedLanguage,
		})
	}
	return page, nil
}

func (c *MangaDex) ChapterImages(ctx context.Context, chapterID string) (*model.ChapterImages, error) {
	var resp struct {
		BaseURL string `json:"baseUrl"`
		Chapter struct {
			Hash      string   `json:"hash"`
			Data      []string `json:"data"`
			DataSaver []string `json:"dataSaver"`
		} `json:"chapter"`
	}
	if err := c.get(ctx, "/at-home/server/"+url.PathEscape(chapterID), nil, &resp); err != nil {
		if errors.Is(err, errBadRequest) || errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("Chapter not found")
		}
		return nil, err
	}

	images := &model.ChapterImages{
		Pages:   make([]string, 0, len(resp.Chapter.DataSaver)),
		PagesHQ: make([]string, 0, len(resp.Chapter.Data)),
	}
	for _, p := range resp.Chapter.DataSaver {
		images.Pages = append(images.Pages, fmt.Sprintf("%s/data-saver/%s/%s", resp.BaseURL, resp.Chapter.Hash, p))
	}
	for _, p := range resp.Chapter.Data {
		images.PagesHQ = append(images.PagesHQ, fmt.Sprintf("%s/data/%s/%s", resp.BaseURL, resp.Chapter.Hash, p))
	}
	return images, nil
}

var errBadRequest = errors.New("catalog rejected request")

func (c *MangaDex) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("catalog request failed", zap.String("path", path), zap.Error(err))
		return apperr.Upstream(err, "Catalog unavailable")
	}
	defer resp.Body.Close()

	c.log.Debug("catalog request",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperr.NotFound("Not found in catalog")
	case resp.StatusCode == http.StatusBadRequest:
		return errBadRequest
	case resp.StatusCode != http.StatusOK:
		return apperr.Upstream(fmt.Errorf("unexpected status code: %d", resp.StatusCode), "Catalog unavailable")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Upstream(fmt.Errorf("decode response: %w", err), "Catalog returned a malformed response")
	}
	return nil
}

func (c *MangaDex) format(m mdManga) model.Manga {
	out := model.Manga{
		ID:            m.ID,
		Title:         localized(m.Attributes.Title),
		Description:   localized(m.Attributes.Description),
		Status:        m.Attributes.Status,
		ContentRating: m.Attributes.ContentRating,
		LastUpdated:   m.Attributes.UpdatedAt,
		Author:        "Unknown",
		Tags:          make([]string, 0, len(m.Attributes.Tags)),
	}
	for _, t := range m.Attributes.Tags {
		out.Tags = append(out.Tags, t.Attributes.Name["en"])
	}
	for _, rel := range m.Relationships {
		if rel.Attributes == nil {
			continue
		}
		switch rel.Type {
		case "cover_art":
			if rel.Attributes.FileName != "" {
				out.CoverImage = fmt.Sprintf("%s/%s/%s", c.CoverURL, m.ID, rel.Attributes.FileName)
			}
		case "author":
			if rel.Attributes.Name != "" {
				out.Author = rel.Attributes.Name
			}
		}
	}
	return out
}

// localized picks the English value, otherwise the first by language code.
func localized(values map[string]string) string {
	if v, ok := values["en"]; ok {
		return v
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return ""
	}
	return values[keys[0]]
}
