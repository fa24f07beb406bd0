package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/theLastOfCats/manhwa-go-server/internal/apperr"
	"github.com/theLastOfCats/manhwa-go-server/internal/experience"
	"github.com/theLastOfCats/manhwa-go-server/internal/model"
)

const userColumns = `id, username, email, password_hash, role, level, experience, language, dark_mode, version, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
		&u.Level, &u.Experience, &u.Language, &u.DarkMode,
		&u.Version, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (q *Queries) CreateUser(ctx context.Context, u *model.User) error {
	now := nowMillis()
	if u.Role == "" {
		u.Role = model.RoleReader
	}
	if u.Language == "" {
		u.Language = model.LangEN
	}
	if u.Level < 1 {
		u.Level = 1
	}

	res, err := q.q.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, role, level, experience, language, dark_mode, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, string(u.Role), u.Level, u.Experience, string(u.Language), u.DarkMode, now, now,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return apperr.Validation("User already exists")
		}
		return fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("User not found")
	}
	return u, err
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("User not found")
	}
	return u, err
}

func (q *Queries) UserExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := q.q.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// AwardExperience adds amount to the user's experience with level rollover.
// The write is conditional on the version read, so a concurrent award
// makes this call fail with a conflict instead of being overwritten.
func (q *Queries) AwardExperience(ctx context.Context, userID int64, amount int) (*model.User, error) {
	if amount < 0 {
		return nil, apperr.Validation("experience amount must not be negative")
	}

	u, err := q.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return u, nil
	}

	level, exp := experience.Apply(u.Level, u.Experience, amount)
	now := nowMillis()

	res, err := q.q.ExecContext(ctx,
		`UPDATE users SET level = ?, experience = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		level, exp, now, userID, u.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("award experience: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, apperr.Conflict(nil, "user %d was modified concurrently", userID)
	}

	u.Level = level
	u.Experience = exp
	u.Version++
	u.UpdatedAt = now
	return u, nil
}

func (q *Queries) UpdatePreferences(ctx context.Context, userID int64, lang *model.Language, darkMode *bool) (*model.User, error) {
	u, err := q.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if lang != nil {
		u.Language = *lang
	}
	if darkMode != nil {
		u.DarkMode = *darkMode
	}
	u.UpdatedAt = nowMillis()

	_, err = q.q.ExecContext(ctx,
		`UPDATE users SET language = ?, dark_mode = ?, updated_at = ? WHERE id = ?`,
		string(u.Language), u.DarkMode, u.UpdatedAt, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}
	return u, nil
}

func (q *Queries) UpdateRole(ctx context.Context, userID int64, role model.Role) (*model.User, error) {
	u, err := q.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	u.Role = role
	u.UpdatedAt = nowMillis()
	_, err = q.q.ExecContext(ctx, `UPDATE users SET role = ?, updated_at = ? WHERE id = ?`, string(role), u.UpdatedAt, userID)
	if err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	return u, nil
}

// ListUsers pages through users matching search on username or email,
// newest first.
func (q *Queries) ListUsers(ctx context.Context, search string, limit, offset int) ([]model.User, int, error) {
	where := ""
	var args []any
	if search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		where = ` WHERE LOWER(username) LIKE ? OR LOWER(email) LIKE ?`
		args = append(args, pattern, pattern)
	}

	var total int
	if err := q.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := q.q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users`+where+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}
