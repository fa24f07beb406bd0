package leveling

import (
	"context"
	"errors"
	"fmt"

	"github.com/theLastOfCats/manhwa-go-server/internal/apperr"
	"github.com/theLastOfCats/manhwa-go-server/internal/db"
	"github.com/theLastOfCats/manhwa-go-server/internal/model"
)

type RequirementProgress struct {
	Current  int  `json:"current"`
	Required int  `json:"required"`
	Done     bool `json:"done"`
}

// TaskProgress is the user's standing against the task of their level.
// Task is nil when no task is defined for that level.
type TaskProgress struct {
	User     *model.User                                   `json:"-"`
	Task     *model.LevelTask                              `json:"task"`
	Progress map[model.RequirementType]RequirementProgress `json:"progress"`
	Complete bool                                          `json:"complete"`
}

// Tracker derives level task progress from stored records. It never writes
// and never awards the task reward.
type Tracker struct {
	DB *db.DB
}

func (t *Tracker) GetTaskProgress(ctx context.Context, userID int64) (*TaskProgress, error) {
	q := t.DB.Queries()

	user, err := q.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &TaskProgress{
		User:     user,
		Progress: map[model.RequirementType]RequirementProgress{},
	}

	task, err := q.GetLevelTask(ctx, user.Level)
	if errors.Is(err, apperr.ErrNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load level task: %w", err)
	}
	result.Task = task

	result.Complete = len(task.Requirements) > 0
	for _, req := range task.Requirements {
		current, err := q.CountRequirement(ctx, userID, req.Type)
		if err != nil {
			return nil, err
		}
		rp := RequirementProgress{
			Current:  current,
			Required: req.Count,
			Done:     current >= req.Count,
		}
		result.Progress[req.Type] = rp
		result.Complete = result.Complete && rp.Done
	}
	return result, nil
}
