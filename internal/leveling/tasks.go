package leveling

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/theLastOfCats/manhwa-go-server/internal/apperr"
	"github.com/theLastOfCats/manhwa-go-server/internal/db"
	"github.com/theLastOfCats/manhwa-go-server/internal/model"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed seeds.yaml
var defaultSeeds []byte

// ValidateTask checks a level task before it is stored.
func ValidateTask(t *model.LevelTask) error {
	if t.Level < 1 {
		return apperr.Validation("Level must be a positive integer")
	}
	if t.Reward < 0 {
		return apperr.Validation("Reward must not be negative")
	}
	if t.Description[model.LangEN] == "" {
		return apperr.Validation("English description is required")
	}
	for lang := range t.Description {
		if !lang.Valid() {
			return apperr.Validation("Unsupported description language %q", lang)
		}
	}

	seen := make(map[model.RequirementType]bool, len(t.Requirements))
	for _, r := range t.Requirements {
		if !r.Type.Valid() {
			return apperr.Validation("Invalid requirement type %q", r.Type)
		}
		if r.Count < 1 {
			return apperr.Validation("Requirement count must be at least 1")
		}
		if seen[r.Type] {
			return apperr.Validation("Duplicate requirement type %q", r.Type)
		}
		seen[r.Type] = true
	}
	return nil
}

// ParseSeeds decodes a YAML list of level tasks and validates each one.
func ParseSeeds(data []byte) ([]model.LevelTask, error) {
	var tasks []model.LevelTask
	if err := yaml.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("parse level task seeds: %w", err)
	}
	for i := range tasks {
		if err := ValidateTask(&tasks[i]); err != nil {
			return nil, fmt.Errorf("seed for level %d: %w", tasks[i].Level, err)
		}
	}
	return tasks, nil
}

// DefaultSeeds returns the built-in level tasks.
func DefaultSeeds() ([]model.LevelTask, error) {
	return ParseSeeds(defaultSeeds)
}

// Seed stores tasks. Unless overwrite is set, it does nothing when any
// task already exists. It reports how many tasks were written.
func Seed(ctx context.Context, database *db.DB, tasks []model.LevelTask, overwrite bool, log *zap.Logger) (int, error) {
	if log == nil {
		log = zap.NewNop()
	}

	written := 0
	err := database.WithTx(ctx, func(q *db.Queries) error {
		written = 0
		if !overwrite {
			n, err := q.CountLevelTasks(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				log.Info("level tasks already present, skipping seed", zap.Int("count", n))
				return nil
			}
		}
		for i := range tasks {
			if err := q.SaveLevelTask(ctx, &tasks[i]); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed level tasks: %w", err)
	}

	if written > 0 {
		log.Info("level tasks seeded", zap.Int("count", written))
	}
	return written, nil
}
