package db_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theLastOfCats/manhwa-go-server/internal/apperr"
	"github.com/theLastOfCats/manhwa-go-server/internal/db"
	"github.com/theLastOfCats/manhwa-go-server/internal/model"
	"github.com/theLastOfCats/manhwa-go-server/internal/testutil"
)

func TestCreateUserDuplicate(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()

	u := testutil.CreateUser(t, database)
	assert.Equal(t, 1, u.Level)
	assert.Equal(t, model.RoleReader, u.Role)

	dup := &model.User{Username: u.Username, Email: "other@example.com", PasswordHash: "x"}
	err := database.Queries().CreateUser(ctx, dup)
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAwardExperienceRollsOver(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, database)

	got, err := database.Queries().AwardExperience(ctx, u.ID, 250)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Level)
	assert.Equal(t, 150, got.Experience)

	stored, err := database.Queries().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Level)
	assert.Equal(t, 150, stored.Experience)
	assert.Equal(t, int64(1), stored.Version)
}

func TestAwardExperienceRejectsNegative(t *testing.T) {
	database := testutil.SetupTestDB(t)
	u := testutil.CreateUser(t, database)

	_, err := database.Queries().AwardExperience(context.Background(), u.ID, -5)
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAwardExperienceUnknownUser(t *testing.T) {
	database := testutil.SetupTestDB(t)

	_, err := database.Queries().AwardExperience(context.Background(), 4242, 10)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateProgressStaleVersion(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, database)
	q := database.Queries()

	p := &model.Progress{UserID: u.ID, ManhwaID: "m-1", Title: "Solo", Status: model.StatusReading}
	require.NoError(t, q.InsertProgress(ctx, p))

	stale := *p
	p.Rating = 4
	require.NoError(t, q.UpdateProgress(ctx, p))
	assert.Equal(t, int64(1), p.Version)

	stale.Rating = 2
	err := q.UpdateProgress(ctx, &stale)
	require.ErrorIs(t, err, apperr.ErrConflict)

	stored, err := q.GetProgress(ctx, u.ID, "m-1")
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Rating)
}

func TestInsertProgressDuplicateIsConflict(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, database)
	q := database.Queries()

	require.NoError(t, q.InsertProgress(ctx, &model.Progress{UserID: u.ID, ManhwaID: "m-1", Status: model.StatusReading}))
	err := q.InsertProgress(ctx, &model.Progress{UserID: u.ID, ManhwaID: "m-1", Status: model.StatusReading})
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestProgressKeepsRewarded(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, database)
	q := database.Queries()

	p := &model.Progress{UserID: u.ID, ManhwaID: "m-1", Status: model.StatusReading, Rewarded: 2}
	require.NoError(t, q.InsertProgress(ctx, p))
	p.Rewarded |= 8
	require.NoError(t, q.UpdateProgress(ctx, p))

	stored, err := q.GetProgress(ctx, u.ID, "m-1")
	require.NoError(t, err)
	assert.Equal(t, 10, stored.Rewarded)
}

func TestAddCategoryEntryMissingCategory(t *testing.T) {
	database := testutil.SetupTestDB(t)

	err := database.Queries().AddCategoryEntry(context.Background(), 999, &model.CategoryEntry{ManhwaID: "m-1"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestWithTxRollsBack(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, database)

	err := database.WithTx(ctx, func(q *db.Queries) error {
		if _, err := q.AwardExperience(ctx, u.ID, 50); err != nil {
			return err
		}
		return apperr.NotFound("Manhwa not found")
	})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	stored, err := database.Queries().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Experience)
}

func TestRetryTxConcurrentAwards(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, database)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- database.RetryTx(ctx, 20, func(q *db.Queries) error {
				_, err := q.AwardExperience(ctx, u.ID, 30)
				return err
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// 240 total: level 1 consumes 100, level 2 holds the remaining 140
	stored, err := database.Queries().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Level)
	assert.Equal(t, 140, stored.Experience)
}

func TestRetryTxStopsOnOtherErrors(t *testing.T) {
	database := testutil.SetupTestDB(t)
	calls := 0

	err := database.RetryTx(context.Background(), 5, func(q *db.Queries) error {
		calls++
		return apperr.Validation("bad input")
	})
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 1, calls)
}

func TestRetryTxGivesUp(t *testing.T) {
	database := testutil.SetupTestDB(t)
	calls := 0

	err := database.RetryTx(context.Background(), 3, func(q *db.Queries) error {
		calls++
		return apperr.Conflict(nil, "always stale")
	})
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, 3, calls)
}

func TestCategoriesAndRequirementCounts(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, database)
	q := database.Queries()

	c := &model.Category{UserID: u.ID, Name: "Favourites"}
	require.NoError(t, q.CreateCategory(ctx, c))
	require.ErrorIs(t, q.CreateCategory(ctx, &model.Category{UserID: u.ID, Name: "Favourites"}), apperr.ErrValidation)

	require.NoError(t, q.AddCategoryEntry(ctx, c.ID, &model.CategoryEntry{ManhwaID: "a", Title: "A"}))
	require.NoError(t, q.AddCategoryEntry(ctx, c.ID, &model.CategoryEntry{ManhwaID: "b", Title: "B"}))
	require.ErrorIs(t, q.AddCategoryEntry(ctx, c.ID, &model.CategoryEntry{ManhwaID: "a"}), apperr.ErrValidation)

	require.NoError(t, q.InsertProgress(ctx, &model.Progress{UserID: u.ID, ManhwaID: "a", IsCompleted: true, Rating: 3, Status: model.StatusCompleted}))
	require.NoError(t, q.InsertProgress(ctx, &model.Progress{UserID: u.ID, ManhwaID: "b", Review: "great", Status: model.StatusReading}))

	counts := map[model.RequirementType]int{
		model.ReqReadManhwa:     1,
		model.ReqWriteReview:    1,
		model.ReqRateManhwa:     1,
		model.ReqCreateCategory: 1,
		model.ReqAddToCategory:  2,
	}
	for typ, want := range counts {
		got, err := q.CountRequirement(ctx, u.ID, typ)
		require.NoError(t, err)
		assert.Equal(t, want, got, typ)
	}

	categories, err := q.ListCategories(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Len(t, categories[0].Manhwas, 2)

	require.NoError(t, q.RemoveCategoryEntry(ctx, c.ID, "a"))
	require.ErrorIs(t, q.RemoveCategoryEntry(ctx, c.ID, "a"), apperr.ErrValidation)

	require.NoError(t, q.DeleteCategory(ctx, u.ID, c.ID))
	require.ErrorIs(t, q.DeleteCategory(ctx, u.ID, c.ID), apperr.ErrNotFound)
}

func TestLevelTasks(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	q := database.Queries()

	_, err := q.GetLevelTask(ctx, 1)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	task := &model.LevelTask{
		Level:        1,
		Description:  map[model.Language]string{model.LangEN: "Read one"},
		Requirements: []model.Requirement{{Type: model.ReqReadManhwa, Count: 1}},
		Reward:       100,
	}
	require.NoError(t, q.SaveLevelTask(ctx, task))

	task.Reward = 150
	require.NoError(t, q.SaveLevelTask(ctx, task))

	got, err := q.GetLevelTask(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 150, got.Reward)
	assert.Equal(t, task.Requirements, got.Requirements)

	n, err := q.CountLevelTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, q.DeleteLevelTask(ctx, 1))
	require.ErrorIs(t, q.DeleteLevelTask(ctx, 1), apperr.ErrNotFound)
}

func TestListUsersSearch(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	q := database.Queries()

	require.NoError(t, q.CreateUser(ctx, &model.User{Username: "Alice", Email: "alice@example.com", PasswordHash: "x"}))
	require.NoError(t, q.CreateUser(ctx, &model.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x"}))

	users, total, err := q.ListUsers(ctx, "ALI", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "Alice", users[0].Username)

	_, total, err = q.ListUsers(ctx, "", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}
