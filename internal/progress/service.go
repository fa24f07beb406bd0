package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/theLastOfCats/manhwa-go-server/internal/apperr"
	"github.com/theLastOfCats/manhwa-go-server/internal/db"
	"github.com/theLastOfCats/manhwa-go-server/internal/model"
	"go.uber.org/zap"
)

const defaultRetries = 5

type catalog interface {
	GetManga(ctx context.Context, id string) (*model.Manga, error)
}

type Result struct {
	Progress  *model.Progress `json:"progress"`
	ExpGained int             `json:"expGained"`
	Message   string          `json:"message"`
}

// Reconciler applies progress updates. Each attempt reads the record
// without locks, merges, then writes the record and the user's award in
// one transaction guarded by both version columns. A lost race is
// retried from a fresh read.
type Reconciler struct {
	DB      *db.DB
	Catalog catalog
	Retries int
	Log     *zap.Logger
}

func NewReconciler(database *db.DB, cat catalog, retries int, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	if retries < 1 {
		retries = defaultRetries
	}
	return &Reconciler{DB: database, Catalog: cat, Retries: retries, Log: log}
}

func (r *Reconciler) UpdateProgress(ctx context.Context, userID int64, manhwaID string, patch Patch) (*Result, error) {
	if manhwaID == "" {
		return nil, apperr.Validation("Manhwa ID is required")
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	// fetched at most once across attempts
	var manga *model.Manga
	var out Outcome

	attempt := 0
	err := db.Retry(ctx, r.Retries, func() error {
		attempt++
		existing, err := r.DB.Queries().GetProgress(ctx, userID, manhwaID)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			if manga == nil {
				manga, err = r.Catalog.GetManga(ctx, manhwaID)
				if err != nil {
					return err
				}
			}
			out = NewRecord(userID, manga, patch)
			out.Record.ManhwaID = manhwaID
			return r.commit(ctx, &out, (*db.Queries).InsertProgress)
		case err != nil:
			return err
		default:
			out = Reconcile(*existing, patch)
			return r.commit(ctx, &out, (*db.Queries).UpdateProgress)
		}
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			r.Log.Warn("progress update gave up after conflicts",
				zap.Int64("user_id", userID),
				zap.String("manhwa_id", manhwaID),
				zap.Int("attempts", attempt),
			)
		}
		return nil, fmt.Errorf("update progress: %w", err)
	}

	r.Log.Debug("progress updated",
		zap.Int64("user_id", userID),
		zap.String("manhwa_id", manhwaID),
		zap.Bool("created", out.Created),
		zap.Int("exp_gained", out.ExpGained),
		zap.Int("attempts", attempt),
	)

	rec := out.Record
	return &Result{Progress: &rec, ExpGained: out.ExpGained, Message: out.Message()}, nil
}

// commit persists the record with write and credits the user in the same
// transaction.
func (r *Reconciler) commit(ctx context.Context, out *Outcome, write func(*db.Queries, context.Context, *model.Progress) error) error {
	rec := out.Record
	err := r.DB.WithTx(ctx, func(q *db.Queries) error {
		if err := write(q, ctx, &rec); err != nil {
			return err
		}
		if out.ExpGained > 0 {
			if _, err := q.AwardExperience(ctx, rec.UserID, out.ExpGained); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	out.Record = rec
	return nil
}
