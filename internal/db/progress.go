package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/theLastOfCats/manhwa-go-server/internal/apperr"
	"github.com/theLastOfCats/manhwa-go-server/internal/model"
)

const progressColumns = `id, user_id, manhwa_id, title, cover_image, last_chapter_read, is_completed, rating, review, status, is_liked, experience_gained, rewarded, version, created_at, updated_at`

func scanProgress(row interface{ Scan(...any) error }) (*model.Progress, error) {
	var p model.Progress
	err := row.Scan(
		&p.ID, &p.UserID, &p.ManhwaID, &p.Title, &p.CoverImage,
		&p.LastChapterRead, &p.IsCompleted, &p.Rating, &p.Review, &p.Status,
		&p.IsLiked, &p.ExperienceGained, &p.Rewarded, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (q *Queries) GetProgress(ctx context.Context, userID int64, manhwaID string) (*model.Progress, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT `+progressColumns+` FROM progress WHERE user_id = ? AND manhwa_id = ?`, userID, manhwaID)
	p, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("progress not found")
	}
	return p, err
}

// InsertProgress stores a new record. A record that appeared since the
// caller looked is reported as a conflict.
func (q *Queries) InsertProgress(ctx context.Context, p *model.Progress) error {
	now := nowMillis()
	res, err := q.q.ExecContext(ctx,
		`INSERT INTO progress (user_id, manhwa_id, title, cover_image, last_chapter_read, is_completed, rating, review, status, is_liked, experience_gained, rewarded, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		p.UserID, p.ManhwaID, p.Title, p.CoverImage, p.LastChapterRead, p.IsCompleted,
		p.Rating, p.Review, string(p.Status), p.IsLiked, p.ExperienceGained, p.Rewarded, now, now,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return apperr.Conflict(err, "progress for %s was created concurrently", p.ManhwaID)
		}
		return fmt.Errorf("insert progress: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	p.ID = id
	p.Version = 0
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// UpdateProgress writes every mutable field of p in one statement,
// provided the stored version still equals p.Version.
func (q *Queries) UpdateProgress(ctx context.Context, p *model.Progress) error {
	now := nowMillis()
	res, err := q.q.ExecContext(ctx,
		`UPDATE progress SET last_chapter_read = ?, is_completed = ?, rating = ?, review = ?, status = ?,
		is_liked = ?, experience_gained = ?, rewarded = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		p.LastChapterRead, p.IsCompleted, p.Rating, p.Review, string(p.Status),
		p.IsLiked, p.ExperienceGained, p.Rewarded, now, p.ID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.Conflict(nil, "progress %d was modified concurrently", p.ID)
	}

	p.Version++
	p.UpdatedAt = now
	return nil
}

// ListProgress pages through a user's records, most recently updated first.
// An empty status matches every record.
func (q *Queries) ListProgress(ctx context.Context, userID int64, status model.Status, limit, offset int) ([]model.Progress, int, error) {
	where := ` WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		where += ` AND status = ?`
		args = append(args, string(status))
	}

	var total int
	if err := q.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM progress`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count progress: %w", err)
	}

	rows, err := q.q.QueryContext(ctx,
		`SELECT `+progressColumns+` FROM progress`+where+` ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	list := []model.Progress{}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *p)
	}
	return list, total, rows.Err()
}

type ReadingStats struct {
	TotalManhwa   int     `json:"totalManhwa"`
	Completed     int     `json:"completed"`
	Liked         int     `json:"liked"`
	AverageRating float64 `json:"averageRating"`
	TotalReviews  int     `json:"totalReviews"`
}

func (q *Queries) ReadingStats(ctx context.Context, userID int64) (ReadingStats, error) {
	var s ReadingStats
	var avg sql.NullFloat64
	err := q.q.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN is_completed = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_liked = 1 THEN 1 ELSE 0 END), 0),
			AVG(rating),
			COALESCE(SUM(CASE WHEN review <> '' THEN 1 ELSE 0 END), 0)
		FROM progress WHERE user_id = ?`, userID,
	).Scan(&s.TotalManhwa, &s.Completed, &s.Liked, &avg, &s.TotalReviews)
	if err != nil {
		return ReadingStats{}, fmt.Errorf("reading stats: %w", err)
	}
	s.AverageRating = avg.Float64
	return s, nil
}

// CountRequirement returns the user's current count for one level task
// requirement type, derived from stored records.
func (q *Queries) CountRequirement(ctx context.Context, userID int64, t model.RequirementType) (int, error) {
	var query string
	switch t {
	case model.ReqReadManhwa:
		query = `SELECT COUNT(*) FROM progress WHERE user_id = ? AND is_completed = 1`
	case model.ReqWriteReview:
		query = `SELECT COUNT(*) FROM progress WHERE user_id = ? AND review <> ''`
	case model.ReqRateManhwa:
		query = `SELECT COUNT(*) FROM progress WHERE user_id = ? AND rating > 0`
	case model.ReqCreateCategory:
		query = `SELECT COUNT(*) FROM categories WHERE user_id = ?`
	case model.ReqAddToCategory:
		query = `SELECT COUNT(*) FROM category_entries ce JOIN categories c ON c.id = ce.category_id WHERE c.user_id = ?`
	default:
		return 0, apperr.Validation("unknown requirement type %q", t)
	}

	var n int
	if err := q.q.QueryRowContext(ctx, query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", t, err)
	}
	return n, nil
}
