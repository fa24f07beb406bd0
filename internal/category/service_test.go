package category_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theLastOfCats/manhwa-go-server/internal/apperr"
	"github.com/theLastOfCats/manhwa-go-server/internal/category"
	"github.com/theLastOfCats/manhwa-go-server/internal/experience"
	"github.com/theLastOfCats/manhwa-go-server/internal/model"
	"github.com/theLastOfCats/manhwa-go-server/internal/testutil"
)

var tower = model.Manga{ID: "tower-1", Title: "Tower of God", CoverImage: "https://covers/tower.jpg"}

func setup(t *testing.T) (*category.Service, *model.User, *testutil.FakeCatalog) {
	t.Helper()
	database := testutil.SetupTestDB(t)
	cat := testutil.NewFakeCatalog(tower)
	return category.NewService(database, cat, 5, nil), testutil.CreateUser(t, database), cat
}

func experienceOf(t *testing.T, s *category.Service, userID int64) int {
	t.Helper()
	u, err := s.DB.Queries().GetUserByID(context.Background(), userID)
	require.NoError(t, err)
	return u.Experience
}

func TestCreateAwardsOnce(t *testing.T) {
	s, user, _ := setup(t)
	ctx := context.Background()

	res, err := s.Create(ctx, user.ID, "  Favourites ", "best ones")
	require.NoError(t, err)
	assert.Equal(t, "Favourites", res.Category.Name)
	assert.Equal(t, experience.CreateCategory, res.ExpGained)
	assert.Equal(t, "Category created! +10 EXP", res.Message)

	_, err = s.Create(ctx, user.ID, "Favourites", "")
	require.ErrorIs(t, err, apperr.ErrValidation)

	assert.Equal(t, experience.CreateCategory, experienceOf(t, s, user.ID))

	list, err := s.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateValidatesName(t *testing.T) {
	s, user, _ := setup(t)

	for _, name := range []string{"", " ", "a", "this name is far too long for a category"} {
		_, err := s.Create(context.Background(), user.ID, name, "")
		assert.ErrorIs(t, err, apperr.ErrValidation, name)
	}
	assert.Zero(t, experienceOf(t, s, user.ID))
}

func TestUpdate(t *testing.T) {
	s, user, _ := setup(t)
	ctx := context.Background()

	a, err := s.Create(ctx, user.ID, "Reading", "")
	require.NoError(t, err)
	_, err = s.Create(ctx, user.ID, "Later", "")
	require.NoError(t, err)

	desc := "currently on it"
	res, err := s.Update(ctx, user.ID, a.Category.ID, nil, &desc)
	require.NoError(t, err)
	assert.Equal(t, "Reading", res.Category.Name)
	assert.Equal(t, desc, res.Category.Description)

	taken := "Later"
	_, err = s.Update(ctx, user.ID, a.Category.ID, &taken, nil)
	require.ErrorIs(t, err, apperr.ErrValidation)

	other := testutil.CreateUser(t, s.DB)
	_, err = s.Update(ctx, other.ID, a.Category.ID, nil, &desc)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDelete(t *testing.T) {
	s, user, _ := setup(t)
	ctx := context.Background()

	res, err := s.Create(ctx, user.ID, "Gone", "")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, user.ID, res.Category.ID))
	require.ErrorIs(t, s.Delete(ctx, user.ID, res.Category.ID), apperr.ErrNotFound)
}

func TestAddAndRemoveManhwa(t *testing.T) {
	s, user, cat := setup(t)
	ctx := context.Background()

	created, err := s.Create(ctx, user.ID, "Action", "")
	require.NoError(t, err)
	id := created.Category.ID

	res, err := s.AddManhwa(ctx, user.ID, id, tower.ID)
	require.NoError(t, err)
	assert.Equal(t, experience.AddToCategory, res.ExpGained)
	assert.Equal(t, "Manhwa added to category! +2 EXP", res.Message)
	require.Len(t, res.Category.Manhwas, 1)
	assert.Equal(t, tower.Title, res.Category.Manhwas[0].Title)

	_, err = s.AddManhwa(ctx, user.ID, id, tower.ID)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, int64(1), cat.Lookups.Load())

	_, err = s.AddManhwa(ctx, user.ID, id, "unknown")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Equal(t, experience.CreateCategory+experience.AddToCategory, experienceOf(t, s, user.ID))

	removed, err := s.RemoveManhwa(ctx, user.ID, id, tower.ID)
	require.NoError(t, err)
	assert.Empty(t, removed.Category.Manhwas)

	_, err = s.RemoveManhwa(ctx, user.ID, id, tower.ID)
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAddManhwaToForeignCategory(t *testing.T) {
	s, user, cat := setup(t)
	ctx := context.Background()

	created, err := s.Create(ctx, user.ID, "Mine", "")
	require.NoError(t, err)

	other := testutil.CreateUser(t, s.DB)
	_, err = s.AddManhwa(ctx, other.ID, created.Category.ID, tower.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Zero(t, cat.Lookups.Load())
}

type lookupFunc func(ctx context.Context, id string) (*model.Manga, error)

func (f lookupFunc) GetManga(ctx context.Context, id string) (*model.Manga, error) {
	return f(ctx, id)
}

func TestAddManhwaToCategoryDeletedDuringLookup(t *testing.T) {
	s, user, _ := setup(t)
	ctx := context.Background()

	created, err := s.Create(ctx, user.ID, "Doomed", "")
	require.NoError(t, err)
	id := created.Category.ID

	s.Catalog = lookupFunc(func(ctx context.Context, mangaID string) (*model.Manga, error) {
		require.NoError(t, s.Delete(ctx, user.ID, id))
		return &tower, nil
	})

	_, err = s.AddManhwa(ctx, user.ID, id, tower.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, experience.CreateCategory, experienceOf(t, s, user.ID))
}
