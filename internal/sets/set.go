package sets

import "time"

// Set is one performed set of an exercise entry.
//
// BodyweightPercentage and Bodyweight are read-time context pulled in
// by the repo (from the exercise and from the weight measurement
// history), never stored on the set row. OneRepMax, PerceivedOneRepMax
// and BodyweightResolved are derived from them on every read.
type Set struct {
	ID      int `json:"id"`
	EntryID int `json:"entryId"`
	UserID  int `json:"-"`

	SetOrder int     `json:"setOrder"`
	Reps     int     `json:"reps"`
	WeightKg float64 `json:"weightKg"`
	RIR      int     `json:"rir"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	BodyweightPercentage float64  `json:"-"`
	Bodyweight           *float64 `json:"-"`

	OneRepMax          float64 `json:"oneRepMax"`
	PerceivedOneRepMax float64 `json:"perceivedOneRepMax"`
	// BodyweightResolved is false when the estimates for a bodyweight
	// exercise fell back to bodyweight 0 because the user has no weight
	// measurement at or before the entry time.
	BodyweightResolved bool `json:"bodyweightResolved"`
}

// ComputeEstimates fills the derived one-rep-max fields from the raw
// set data and the read-time context.
func (s *Set) ComputeEstimates() {
	bodyweight := 0.0
	if s.Bodyweight != nil {
		bodyweight = *s.Bodyweight
	}
	s.BodyweightResolved = s.BodyweightPercentage == 0 || s.Bodyweight != nil
	s.OneRepMax = Estimate(s.WeightKg, s.Reps, bodyweight, s.BodyweightPercentage)
	s.PerceivedOneRepMax = PerceivedEstimate(s.WeightKg, s.Reps, s.RIR, bodyweight, s.BodyweightPercentage)
}
