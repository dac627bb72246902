package exercises

import "time"

type MuscleGroupTag struct {
	ID          int    `json:"id"`
	MuscleGroup string `json:"muscleGroup"`
	Role        string `json:"role"`
}

type Exercise struct {
	ID          int    `json:"id"`
	UserID      int    `json:"-"`
	Name        string `json:"name"`
	Description string `json:"description"`
	// BodyweightPercentage is the fraction of the user's body weight
	// moved by this exercise (e.g. ~0.6 for a push-up), 0 for purely
	// external-load movements.
	BodyweightPercentage float64          `json:"bodyweightPercentage"`
	MuscleGroups         []MuscleGroupTag `json:"muscleGroups"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
}
