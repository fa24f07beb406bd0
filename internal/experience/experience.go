// Package experience holds the reward table and the level arithmetic.
// Everything here is pure.
package experience

import "math"

// Experience points granted per action.
const (
	ReadManhwa     = 50
	WriteReview    = 20
	RateManhwa     = 5
	CreateCategory = 10
	AddToCategory  = 2
	CompleteTask   = 100

	// NewEntry is the flat bonus for the first progress record of a title.
	NewEntry = 10
)

// Two thresholds coexist on purpose. Rollover uses the linear
// NextLevelThreshold; the profile view uses the quadratic
// ExperienceForNextLevel and LevelProgress. They disagree for every
// level above 1 and are kept apart so that neither changes behavior
// silently.

// NextLevelThreshold is the experience that must accumulate within level
// before the user advances.
func NextLevelThreshold(level int) int {
	return level * 100
}

// ExperienceForNextLevel is the display figure shown next to the level.
func ExperienceForNextLevel(level int) int {
	return level * level * 100
}

// LevelProgress returns the display percentage toward the next level,
// clamped to [0, 100].
func LevelProgress(experience, level int) int {
	if level < 1 {
		level = 1
	}
	current := (level - 1) * (level - 1) * 100
	next := level * level * 100

	p := (experience - current) * 100 / (next - current)
	return max(0, min(100, p))
}

// CalculateLevel derives a level from a lifetime experience total.
func CalculateLevel(total int) int {
	if total <= 0 {
		return 1
	}
	return int(math.Floor(math.Sqrt(float64(total)/100))) + 1
}

// Apply adds amount to experience and rolls over as many levels as it
// covers. A non-negative amount on a valid state always yields
// 0 <= experience < NextLevelThreshold(level).
func Apply(level, experience, amount int) (int, int) {
	if level < 1 {
		level = 1
	}
	experience += amount
	for experience >= NextLevelThreshold(level) {
		experience -= NextLevelThreshold(level)
		level++
	}
	return level, experience
}

// Valid reports whether a stored (level, experience) pair satisfies the
// rollover invariant.
func Valid(level, experience int) bool {
	return level >= 1 && experience >= 0 && experience < NextLevelThreshold(level)
}
