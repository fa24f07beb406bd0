package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/theLastOfCats/manhwa-go-server/internal/apperr"
	"github.com/theLastOfCats/manhwa-go-server/internal/model"
)

func scanLevelTask(row interface{ Scan(...any) error }) (*model.LevelTask, error) {
	var t model.LevelTask
	var desc, reqs string
	var createdAt, updatedAt int64
	if err := row.Scan(&t.Level, &desc, &reqs, &t.Reward, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(desc), &t.Description); err != nil {
		return nil, fmt.Errorf("decode level %d description: %w", t.Level, err)
	}
	if err := json.Unmarshal([]byte(reqs), &t.Requirements); err != nil {
		return nil, fmt.Errorf("decode level %d requirements: %w", t.Level, err)
	}
	return &t, nil
}

func (q *Queries) GetLevelTask(ctx context.Context, level int) (*model.LevelTask, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT level, description, requirements, reward, created_at, updated_at FROM level_tasks WHERE level = ?`, level)
	t, err := scanLevelTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Level task not found")
	}
	return t, err
}

func (q *Queries) ListLevelTasks(ctx context.Context) ([]model.LevelTask, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT level, description, requirements, reward, created_at, updated_at FROM level_tasks ORDER BY level`)
	if err != nil {
		return nil, fmt.Errorf("list level tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.LevelTask{}
	for rows.Next() {
		t, err := scanLevelTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (q *Queries) CountLevelTasks(ctx context.Context) (int, error) {
	var n int
	err := q.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM level_tasks`).Scan(&n)
	return n, err
}

// SaveLevelTask inserts the task for its level or replaces the existing one.
func (q *Queries) SaveLevelTask(ctx context.Context, t *model.LevelTask) error {
	desc, err := json.Marshal(t.Description)
	if err != nil {
		return fmt.Errorf("encode description: %w", err)
	}
	reqs, err := json.Marshal(t.Requirements)
	if err != nil {
		return fmt.Errorf("encode requirements: %w", err)
	}

	var exists bool
	if err := q.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM level_tasks WHERE level = ?)`, t.Level).Scan(&exists); err != nil {
		return fmt.Errorf("check level task: %w", err)
	}

	now := nowMillis()
	if exists {
		_, err = q.q.ExecContext(ctx,
			`UPDATE level_tasks SET description = ?, requirements = ?, reward = ?, updated_at = ? WHERE level = ?`,
			string(desc), string(reqs), t.Reward, now, t.Level,
		)
	} else {
		_, err = q.q.ExecContext(ctx,
			`INSERT INTO level_tasks (level, description, requirements, reward, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			t.Level, string(desc), string(reqs), t.Reward, now, now,
		)
		if IsUniqueViolation(err) {
			return apperr.Conflict(err, "level task %d was created concurrently", t.Level)
		}
	}
	if err != nil {
		return fmt.Errorf("save level task: %w", err)
	}
	return nil
}

func (q *Queries) DeleteLevelTask(ctx context.Context, level int) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM level_tasks WHERE level = ?`, level)
	if err != nil {
		return fmt.Errorf("delete level task: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("Level task not found")
	}
	return nil
}
