package entries

import "time"

// Entry is one logged occurrence of an exercise in a workout. Its sets
// live in the sets package and hang off the entry via entry_id.
type Entry struct {
	ID         int `json:"id"`
	UserID     int `json:"-"`
	ExerciseID int `json:"exerciseId"`

	// ExerciseName is joined in on reads for client convenience.
	ExerciseName string `json:"exerciseName"`

	Notes string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
