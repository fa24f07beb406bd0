package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/theLastOfCats/manhwa-go-server/internal/apperr"
	"github.com/theLastOfCats/manhwa-go-server/internal/model"
)

func (q *Queries) ListCategories(ctx context.Context, userID int64) ([]model.Category, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT id, user_id, name, description, created_at, updated_at FROM categories WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// entries are fetched after the category cursor is closed so that a
	// transaction-bound querier never holds two result sets at once
	for i := range categories {
		entries, err := q.categoryEntries(ctx, categories[i].ID)
		if err != nil {
			return nil, err
		}
		categories[i].Manhwas = entries
	}
	return categories, nil
}

// GetCategory loads a category owned by userID together with its entries.
func (q *Queries) GetCategory(ctx context.Context, userID, categoryID int64) (*model.Category, error) {
	var c model.Category
	err := q.q.QueryRowContext(ctx,
		`SELECT id, user_id, name, description, created_at, updated_at FROM categories WHERE id = ? AND user_id = ?`,
		categoryID, userID,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Category not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}

	c.Manhwas, err = q.categoryEntries(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (q *Queries) categoryEntries(ctx context.Context, categoryID int64) ([]model.CategoryEntry, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT manhwa_id, title, cover_image, added_at FROM category_entries WHERE category_id = ? ORDER BY added_at, manhwa_id`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list category entries: %w", err)
	}
	defer rows.Close()

	entries := []model.CategoryEntry{}
	for rows.Next() {
		var e model.CategoryEntry
		if err := rows.Scan(&e.ManhwaID, &e.Title, &e.CoverImage, &e.AddedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (q *Queries) CreateCategory(ctx context.Context, c *model.Category) error {
	now := nowMillis()
	res, err := q.q.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		c.UserID, c.Name, c.Description, now, now,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return apperr.Validation("Category with this name already exists")
		}
		return fmt.Errorf("insert category: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Manhwas == nil {
		c.Manhwas = []model.CategoryEntry{}
	}
	return nil
}

func (q *Queries) UpdateCategory(ctx context.Context, c *model.Category) error {
	c.UpdatedAt = nowMillis()
	_, err := q.q.ExecContext(ctx,
		`UPDATE categories SET name = ?, description = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		c.Name, c.Description, c.UpdatedAt, c.ID, c.UserID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return apperr.Validation("Category with this name already exists")
		}
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

func (q *Queries) DeleteCategory(ctx context.Context, userID, categoryID int64) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND user_id = ?`, categoryID, userID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("Category not found")
	}
	return nil
}

func (q *Queries) AddCategoryEntry(ctx context.Context, categoryID int64, e *model.CategoryEntry) error {
	e.AddedAt = nowMillis()
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO category_entries (category_id, manhwa_id, title, cover_image, added_at) VALUES (?, ?, ?, ?, ?)`,
		categoryID, e.ManhwaID, e.Title, e.CoverImage, e.AddedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return apperr.Validation("Manhwa already in category")
		}
		if IsForeignKeyViolation(err) {
			return apperr.NotFound("Category not found")
		}
		return fmt.Errorf("insert category entry: %w", err)
	}

	_, err = q.q.ExecContext(ctx, `UPDATE categories SET updated_at = ? WHERE id = ?`, e.AddedAt, categoryID)
	return err
}

func (q *Queries) HasCategoryEntry(ctx context.Context, categoryID int64, manhwaID string) (bool, error) {
	var exists bool
	err := q.q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM category_entries WHERE category_id = ? AND manhwa_id = ?)`, categoryID, manhwaID,
	).Scan(&exists)
	return exists, err
}

func (q *Queries) RemoveCategoryEntry(ctx context.Context, categoryID int64, manhwaID string) error {
	res, err := q.q.ExecContext(ctx,
		`DELETE FROM category_entries WHERE category_id = ? AND manhwa_id = ?`, categoryID, manhwaID)
	if err != nil {
		return fmt.Errorf("delete category entry: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.Validation("Manhwa not in category")
	}

	_, err = q.q.ExecContext(ctx, `UPDATE categories SET updated_at = ? WHERE id = ?`, nowMillis(), categoryID)
	return err
}
