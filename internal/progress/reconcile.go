// Package progress merges partial reading updates into stored records and
// decides which of them earn experience.
package progress

import (
	"fmt"
	"strings"

	"github.com/theLastOfCats/manhwa-go-server/internal/apperr"
	"github.com/theLastOfCats/manhwa-go-server/internal/experience"
	"github.com/theLastOfCats/manhwa-go-server/internal/model"
)

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	LastChapterRead *int          `json:"lastChapterRead,omitempty"`
	IsCompleted     *bool         `json:"isCompleted,omitempty"`
	Rating          *int          `json:"rating,omitempty"`
	Review          *string       `json:"review,omitempty"`
	Status          *model.Status `json:"status,omitempty"`
	IsLiked         *bool         `json:"isLiked,omitempty"`
}

func (p Patch) Validate() error {
	if p.LastChapterRead != nil && *p.LastChapterRead < 0 {
		return apperr.Validation("Last chapter read must be a non-negative number")
	}
	if p.Rating != nil && (*p.Rating < 0 || *p.Rating > 5) {
		return apperr.Validation("Rating must be between 0 and 5")
	}
	if p.Status != nil && !p.Status.Valid() {
		return apperr.Validation("Invalid status")
	}
	return nil
}

// Trigger is a first-time transition that earns experience.
type Trigger int

const (
	TriggerCompleted Trigger = iota + 1
	TriggerRated
	TriggerReviewed
)

func (t Trigger) Reward() int {
	switch t {
	case TriggerCompleted:
		return experience.ReadManhwa
	case TriggerRated:
		return experience.RateManhwa
	case TriggerReviewed:
		return experience.WriteReview
	}
	return 0
}

func (t Trigger) mask() int { return 1 << t }

// Earned reports whether rec has already been paid for t.
func Earned(rec model.Progress, t Trigger) bool {
	return rec.Rewarded&t.mask() != 0
}

// Outcome is the merged record together with what the merge earned.
type Outcome struct {
	Record    model.Progress
	ExpGained int
	Created   bool
	Triggers  []Trigger
}

// NewRecord builds the first record for a title. It always earns the flat
// new entry bonus and nothing else, whatever the patch contains.
func NewRecord(userID int64, manga *model.Manga, patch Patch) Outcome {
	rec := model.Progress{
		UserID:     userID,
		ManhwaID:   manga.ID,
		Title:      manga.Title,
		CoverImage: manga.CoverImage,
		Status:     model.StatusReading,
	}
	apply(&rec, patch)
	rec.ExperienceGained = experience.NewEntry

	return Outcome{Record: rec, ExpGained: experience.NewEntry, Created: true}
}

// Reconcile merges patch into old. Eligibility is judged against the
// stored values in old, so re-sending the same patch earns nothing.
// Each trigger pays at most once per record; clearing a field and
// setting it again earns nothing.
//
//	field        reward when
//	isCompleted  new true  and old false
//	rating       new > 0   and old == 0
//	review       new != "" and old == ""
func Reconcile(old model.Progress, patch Patch) Outcome {
	out := Outcome{Record: old}

	if patch.IsCompleted != nil && *patch.IsCompleted && !old.IsCompleted {
		out.earn(TriggerCompleted)
	}
	if patch.Rating != nil && *patch.Rating > 0 && old.Rating == 0 {
		out.earn(TriggerRated)
	}
	if patch.Review != nil && *patch.Review != "" && old.Review == "" {
		out.earn(TriggerReviewed)
	}

	apply(&out.Record, patch)
	for _, t := range out.Triggers {
		out.ExpGained += t.Reward()
	}
	out.Record.ExperienceGained += out.ExpGained
	return out
}

func (o *Outcome) earn(t Trigger) {
	if Earned(o.Record, t) {
		return
	}
	o.Triggers = append(o.Triggers, t)
	o.Record.Rewarded |= t.mask()
}

func apply(rec *model.Progress, patch Patch) {
	if patch.LastChapterRead != nil {
		rec.LastChapterRead = *patch.LastChapterRead
	}
	if patch.IsCompleted != nil {
		rec.IsCompleted = *patch.IsCompleted
	}
	if patch.Rating != nil {
		rec.Rating = *patch.Rating
	}
	if patch.Review != nil {
		rec.Review = *patch.Review
	}
	if patch.Status != nil {
		rec.Status = *patch.Status
	}
	if patch.IsLiked != nil {
		rec.IsLiked = *patch.IsLiked
	}
}

// Message is the user-facing summary of the outcome.
func (o Outcome) Message() string {
	if o.Created {
		return fmt.Sprintf("Manhwa added to your list! +%d EXP", experience.NewEntry)
	}

	parts := []string{"Reading progress updated"}
	for _, t := range o.Triggers {
		switch t {
		case TriggerCompleted:
			parts[0] = fmt.Sprintf("Manhwa completed! +%d EXP", t.Reward())
		case TriggerRated:
			parts = append(parts, fmt.Sprintf("Rated a manhwa! +%d EXP", t.Reward()))
		case TriggerReviewed:
			parts = append(parts, fmt.Sprintf("Review added! +%d EXP", t.Reward()))
		}
	}
	return strings.Join(parts, " | ")
}
