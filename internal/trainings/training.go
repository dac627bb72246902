package trainings

import "time"

// Training is a reusable workout plan: a named, ordered list of
// exercises with target volumes. Logged workouts reference exercises
// directly, a training is only the template.
type Training struct {
	ID     int `json:"id"`
	UserID int `json:"-"`

	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Exercises []TrainingExercise `json:"exercises"`
}

// TrainingExercise is one slot of a training plan.
type TrainingExercise struct {
	ID         int `json:"id"`
	TrainingID int `json:"trainingId"`
	ExerciseID int `json:"exerciseId"`

	ExerciseName string `json:"exerciseName"`

	Position   int    `json:"position"`
	TargetSets int    `json:"targetSets"`
	TargetReps int    `json:"targetReps"`
	Notes      string `json:"notes,omitempty"`
}
