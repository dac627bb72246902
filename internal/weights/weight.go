package weights

import "time"

// Measurement is one bodyweight data point. The measurement history is
// what anchors one-rep-max estimates for bodyweight exercises: a set is
// evaluated against the most recent measurement at or before its entry.
type Measurement struct {
	ID     int `json:"id"`
	UserID int `json:"-"`

	WeightKg   float64   `json:"weightKg"`
	MeasuredAt time.Time `json:"measuredAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
