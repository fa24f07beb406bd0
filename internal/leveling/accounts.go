// Package leveling owns the experience award operation and the
// level task checklist shown on the profile.
package leveling

import (
	"context"
	"fmt"

	"github.com/theLastOfCats/manhwa-go-server/internal/db"
	"github.com/theLastOfCats/manhwa-go-server/internal/model"
	"go.uber.org/zap"
)

const defaultRetries = 5

// Accounts awards experience to users outside of any other write.
type Accounts struct {
	DB      *db.DB
	Retries int
	Log     *zap.Logger
}

func NewAccounts(database *db.DB, retries int, log *zap.Logger) *Accounts {
	if log == nil {
		log = zap.NewNop()
	}
	if retries < 1 {
		retries = defaultRetries
	}
	return &Accounts{DB: database, Retries: retries, Log: log}
}

// AddExperience credits amount to the user and returns the updated account.
// Concurrent awards to the same user are serialized by the version check
// and retried, so none of them is lost.
func (a *Accounts) AddExperience(ctx context.Context, userID int64, amount int) (*model.User, error) {
	var user *model.User
	err := a.DB.RetryTx(ctx, a.Retries, func(q *db.Queries) error {
		var err error
		user, err = q.AwardExperience(ctx, userID, amount)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("add experience: %w", err)
	}

	a.Log.Debug("experience awarded",
		zap.Int64("user_id", userID),
		zap.Int("amount", amount),
		zap.Int("level", user.Level),
		zap.Int("experience", user.Experience),
	)
	return user, nil
}
