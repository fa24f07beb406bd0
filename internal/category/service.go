// Package category manages a user's named manhwa lists. Creating a list and
// filing a title into one both credit the owner.
package category

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/theLastOfCats/manhwa-go-server/internal/apperr"
	"github.com/theLastOfCats/manhwa-go-server/internal/db"
	"github.com/theLastOfCats/manhwa-go-server/internal/experience"
	"github.com/theLastOfCats/manhwa-go-server/internal/model"
	"go.uber.org/zap"
)

const (
	minNameLen     = 2
	maxNameLen     = 30
	defaultRetries = 5
)

type catalog interface {
	GetManga(ctx context.Context, id string) (*model.Manga, error)
}

type Result struct {
	Category  *model.Category `json:"category"`
	ExpGained int             `json:"expGained,omitempty"`
	Message   string          `json:"message,omitempty"`
}

type Service struct {
	DB      *db.DB
	Catalog catalog
	Retries int
	Log     *zap.Logger
}

func NewService(database *db.DB, cat catalog, retries int, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if retries < 1 {
		retries = defaultRetries
	}
	return &Service{DB: database, Catalog: cat, Retries: retries, Log: log}
}

func validateName(name string) error {
	if name == "" {
		return apperr.Validation("Name is required")
	}
	if n := utf8.RuneCountInString(name); n < minNameLen || n > maxNameLen {
		return apperr.Validation("Name must be between %d and %d characters", minNameLen, maxNameLen)
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID int64) ([]model.Category, error) {
	return s.DB.Queries().ListCategories(ctx, userID)
}

// Create stores a new category and credits CreateCategory in the same
// transaction.
func (s *Service) Create(ctx context.Context, userID int64, name, description string) (*Result, error) {
	c := &model.Category{
		UserID:      userID,
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
	}
	if err := validateName(c.Name); err != nil {
		return nil, err
	}

	err := s.DB.RetryTx(ctx, s.Retries, func(q *db.Queries) error {
		if err := q.CreateCategory(ctx, c); err != nil {
			return err
		}
		_, err := q.AwardExperience(ctx, userID, experience.CreateCategory)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.Log.Debug("category created", zap.Int64("user_id", userID), zap.Int64("category_id", c.ID))
	return &Result{
		Category:  c,
		ExpGained: experience.CreateCategory,
		Message:   fmt.Sprintf("Category created! +%d EXP", experience.CreateCategory),
	}, nil
}

// Update renames or re-describes a category. Nil fields are left as they are.
func (s *Service) Update(ctx context.Context, userID, categoryID int64, name, description *string) (*Result, error) {
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if err := validateName(trimmed); err != nil {
			return nil, err
		}
		name = &trimmed
	}

	var c *model.Category
	err := s.DB.WithTx(ctx, func(q *db.Queries) error {
		var err error
		c, err = q.GetCategory(ctx, userID, categoryID)
		if err != nil {
			return err
		}
		if name != nil {
			c.Name = *name
		}
		if description != nil {
			c.Description = strings.TrimSpace(*description)
		}
		return q.UpdateCategory(ctx, c)
	})
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return &Result{Category: c}, nil
}

func (s *Service) Delete(ctx context.Context, userID, categoryID int64) error {
	if err := s.DB.Queries().DeleteCategory(ctx, userID, categoryID); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// AddManhwa files a catalog title into the category and credits
// AddToCategory in the same transaction.
func (s *Service) AddManhwa(ctx context.Context, userID, categoryID int64, manhwaID string) (*Result, error) {
	if manhwaID == "" {
		return nil, apperr.Validation("Manhwa ID is required")
	}

	q := s.DB.Queries()
	if _, err := q.GetCategory(ctx, userID, categoryID); err != nil {
		return nil, err
	}
	present, err := q.HasCategoryEntry(ctx, categoryID, manhwaID)
	if err != nil {
		return nil, fmt.Errorf("check category entry: %w", err)
	}
	if present {
		return nil, apperr.Validation("Manhwa already in category")
	}

	manga, err := s.Catalog.GetManga(ctx, manhwaID)
	if err != nil {
		return nil, err
	}

	var c *model.Category
	err = s.DB.RetryTx(ctx, s.Retries, func(q *db.Queries) error {
		// the category may have gone while the catalog was consulted
		if _, err := q.GetCategory(ctx, userID, categoryID); err != nil {
			return err
		}
		entry := &model.CategoryEntry{ManhwaID: manhwaID, Title: manga.Title, CoverImage: manga.CoverImage}
		if err := q.AddCategoryEntry(ctx, categoryID, entry); err != nil {
			return err
		}
		if _, err := q.AwardExperience(ctx, userID, experience.AddToCategory); err != nil {
			return err
		}
		c, err = q.GetCategory(ctx, userID, categoryID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("add manhwa to category: %w", err)
	}

	return &Result{
		Category:  c,
		ExpGained: experience.AddToCategory,
		Message:   fmt.Sprintf("Manhwa added to category! +%d EXP", experience.AddToCategory),
	}, nil
}

func (s *Service) RemoveManhwa(ctx context.Context, userID, categoryID int64, manhwaID string) (*Result, error) {
	var c *model.Category
	err := s.DB.WithTx(ctx, func(q *db.Queries) error {
		if _, err := q.GetCategory(ctx, userID, categoryID); err != nil {
			return err
		}
		if err := q.RemoveCategoryEntry(ctx, categoryID, manhwaID); err != nil {
			return err
		}
		var err error
		c, err = q.GetCategory(ctx, userID, categoryID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("remove manhwa from category: %w", err)
	}
	return &Result{Category: c, Message: "Manhwa removed from category"}, nil
}
