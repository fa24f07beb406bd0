package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theLastOfCats/manhwa-go-server/internal/apperr"
	"github.com/theLastOfCats/manhwa-go-server/internal/experience"
	"github.com/theLastOfCats/manhwa-go-server/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestReconcileTransitions(t *testing.T) {
	tests := []struct {
		name     string
		old      model.Progress
		patch    Patch
		wantExp  int
		triggers []Trigger
	}{
		{
			name:     "first completion",
			patch:    Patch{IsCompleted: ptr(true)},
			wantExp:  experience.ReadManhwa,
			triggers: []Trigger{TriggerCompleted},
		},
		{
			name:  "already completed",
			old:   model.Progress{IsCompleted: true},
			patch: Patch{IsCompleted: ptr(true)},
		},
		{
			name:  "uncomplete",
			old:   model.Progress{IsCompleted: true},
			patch: Patch{IsCompleted: ptr(false)},
		},
		{
			name:     "first rating",
			patch:    Patch{Rating: ptr(4)},
			wantExp:  experience.RateManhwa,
			triggers: []Trigger{TriggerRated},
		},
		{
			name:  "rating to zero",
			patch: Patch{Rating: ptr(0)},
		},
		{
			name:  "re-rating",
			old:   model.Progress{Rating: 4},
			patch: Patch{Rating: ptr(2)},
		},
		{
			name:     "first review",
			patch:    Patch{Review: ptr("loved it")},
			wantExp:  experience.WriteReview,
			triggers: []Trigger{TriggerReviewed},
		},
		{
			name:  "empty review",
			patch: Patch{Review: ptr("")},
		},
		{
			name:  "edit review",
			old:   model.Progress{Review: "ok"},
			patch: Patch{Review: ptr("better")},
		},
		{
			name:     "all three at once",
			patch:    Patch{IsCompleted: ptr(true), Rating: ptr(5), Review: ptr("peak")},
			wantExp:  experience.ReadManhwa + experience.RateManhwa + experience.WriteReview,
			triggers: []Trigger{TriggerCompleted, TriggerRated, TriggerReviewed},
		},
		{
			name:  "untracked fields",
			patch: Patch{LastChapterRead: ptr(12), Status: ptr(model.StatusDropped), IsLiked: ptr(true)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.old.ExperienceGained = 10
			out := Reconcile(tt.old, tt.patch)

			assert.Equal(t, tt.wantExp, out.ExpGained)
			assert.Equal(t, tt.triggers, out.Triggers)
			assert.Equal(t, 10+tt.wantExp, out.Record.ExperienceGained)
			assert.False(t, out.Created)
		})
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	patch := Patch{IsCompleted: ptr(true), Rating: ptr(3), Review: ptr("solid")}

	first := Reconcile(model.Progress{Status: model.StatusReading}, patch)
	second := Reconcile(first.Record, patch)

	assert.Equal(t, 75, first.ExpGained)
	assert.Zero(t, second.ExpGained)
	assert.Equal(t, first.Record, second.Record)
}

func TestReconcilePaysEachTriggerOnce(t *testing.T) {
	rec := model.Progress{Status: model.StatusReading}

	var gained []int
	for _, patch := range []Patch{
		{IsCompleted: ptr(true), Rating: ptr(4), Review: ptr("good")},
		{IsCompleted: ptr(false), Rating: ptr(0), Review: ptr("")},
		{IsCompleted: ptr(true), Rating: ptr(4), Review: ptr("good again")},
	} {
		out := Reconcile(rec, patch)
		gained = append(gained, out.ExpGained)
		rec = out.Record
	}

	assert.Equal(t, []int{experience.ReadManhwa + experience.RateManhwa + experience.WriteReview, 0, 0}, gained)
	assert.True(t, rec.IsCompleted)
	assert.Equal(t, 4, rec.Rating)
	for _, tr := range []Trigger{TriggerCompleted, TriggerRated, TriggerReviewed} {
		assert.True(t, Earned(rec, tr))
	}
}

func TestReconcileLeavesAbsentFields(t *testing.T) {
	old := model.Progress{LastChapterRead: 7, Rating: 3, Review: "fine", Status: model.StatusReading, IsLiked: true}

	out := Reconcile(old, Patch{LastChapterRead: ptr(8)})

	assert.Equal(t, 8, out.Record.LastChapterRead)
	assert.Equal(t, 3, out.Record.Rating)
	assert.Equal(t, "fine", out.Record.Review)
	assert.Equal(t, model.StatusReading, out.Record.Status)
	assert.True(t, out.Record.IsLiked)
}

func TestNewRecord(t *testing.T) {
	manga := &model.Manga{ID: "m-1", Title: "Tower", CoverImage: "http://cover"}

	out := NewRecord(7, manga, Patch{IsCompleted: ptr(true), Rating: ptr(5)})

	assert.True(t, out.Created)
	assert.Equal(t, experience.NewEntry, out.ExpGained)
	assert.Equal(t, experience.NewEntry, out.Record.ExperienceGained)
	assert.Empty(t, out.Triggers)
	assert.Equal(t, "Tower", out.Record.Title)
	assert.Equal(t, model.StatusReading, out.Record.Status)
	assert.True(t, out.Record.IsCompleted)
	assert.Equal(t, 5, out.Record.Rating)
	assert.Equal(t, "Manhwa added to your list! +10 EXP", out.Message())
}

func TestOutcomeMessage(t *testing.T) {
	assert.Equal(t, "Reading progress updated", Outcome{}.Message())
	assert.Equal(t, "Manhwa completed! +50 EXP", Outcome{Triggers: []Trigger{TriggerCompleted}}.Message())
	assert.Equal(t,
		"Reading progress updated | Rated a manhwa! +5 EXP | Review added! +20 EXP",
		Outcome{Triggers: []Trigger{TriggerRated, TriggerReviewed}}.Message())
	assert.Equal(t,
		"Manhwa completed! +50 EXP | Rated a manhwa! +5 EXP",
		Outcome{Triggers: []Trigger{TriggerCompleted, TriggerRated}}.Message())
}

func TestPatchValidate(t *testing.T) {
	require.NoError(t, Patch{}.Validate())
	require.NoError(t, Patch{Rating: ptr(0), Status: ptr(model.StatusPlanToRead)}.Validate())

	invalid := []Patch{
		{Rating: ptr(6)},
		{Rating: ptr(-1)},
		{Status: ptr(model.Status("paused"))},
		{LastChapterRead: ptr(-3)},
	}
	for _, p := range invalid {
		require.ErrorIs(t, p.Validate(), apperr.ErrValidation)
	}
}
