package sets

// Brzycki one-rep-max estimation.
//
// For exercises that move part of the user's body weight (push-ups,
// dips, ...) the effective resistance is the external weight plus
// bodyweight * bodyweightPercentage. The Brzycki extrapolation is
// applied to that combined load, and the known bodyweight share is
// subtracted back afterwards, so the reported estimate stays
// comparable to the externally loaded weight. The two terms are not
// algebraically equivalent, do not "simplify" the subtraction away.

// The extrapolation degenerates as reps approach 37 (the divisor
// hits zero, then flips sign), so higher rep counts are clamped to
// the formula's last usable point.
const maxExtrapolationReps = 36

// Estimate returns the estimated one-rep-max for a set.
// A single rep (or less) needs no extrapolation: the effective total
// resistance already is the one-rep weight.
func Estimate(weightKg float64, reps int, bodyweightKg, bodyweightPercentage float64) float64 {
	bodyweightLoad := bodyweightKg * bodyweightPercentage
	total := weightKg + bodyweightLoad
	if reps <= 1 {
		return total
	}
	if reps > maxExtrapolationReps {
		reps = maxExtrapolationReps
	}
	return total*(36.0/(37.0-float64(reps))) - bodyweightLoad
}

// PerceivedEstimate is the one-rep-max the set would have produced at
// true failure: the reps in reserve are counted as performed reps.
func PerceivedEstimate(weightKg float64, reps, rir int, bodyweightKg, bodyweightPercentage float64) float64 {
	return Estimate(weightKg, reps+rir, bodyweightKg, bodyweightPercentage)
}
