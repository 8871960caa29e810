// Package grading holds the pure grade arithmetic shared by the grade and
// assessment services: weight validation, the weighted "grade so far", and
// the required-mark projection. Everything here is side-effect free; callers
// own persistence and error presentation.
package grading

import (
	appErrors "github.com/coursemark/coursemark-api/pkg/errors"
)

// WeightTolerance absorbs floating-point noise when comparing weight sums
// against the 100% bound.
const WeightTolerance = 1e-9

// Entry is the minimal assessment shape the calculators operate on.
type Entry struct {
	Mark   *float64
	Weight float64
}

// Completed reports whether a mark has been recorded. A zero mark counts as
// not yet completed.
func (e Entry) Completed() bool {
	return e.Mark != nil && *e.Mark != 0
}

func (e Entry) markValue() float64 {
	if e.Mark == nil {
		return 0
	}
	return *e.Mark
}

// ValidateWeights reports whether the combined weight of existing and
// incoming assessments stays within 100% of the course. Both slices may be
// empty; an enrollment's first assessment validates against an empty set.
func ValidateWeights(existing, incoming []float64) bool {
	total := 0.0
	for _, w := range existing {
		total += w
	}
	for _, w := range incoming {
		total += w
	}
	return total <= 1.0+WeightTolerance
}

// TotalScore computes the weighted sum of recorded marks. Ungraded entries
// contribute zero, so the result is a provisional "grade so far" rather than
// a final grade. An empty slice yields 0.
func TotalScore(entries []Entry) float64 {
	sum := 0.0
	for _, e := range entries {
		sum += e.markValue() * e.Weight
	}
	return sum
}

// RequiredMark computes the mark needed on the single remaining ungraded
// entry to reach the target overall grade (0-100 scale). The precondition is
// part of the contract, not left to callers: zero or multiple ungraded
// entries fail explicitly, as does a zero remaining weight, so the function
// never yields Inf or NaN. The result is not clamped; negative means the
// target is already met, above 100 means it is unreachable.
func RequiredMark(entries []Entry, target float64) (float64, error) {
	completedSum := 0.0
	remaining := -1
	for i, e := range entries {
		if e.Completed() {
			completedSum += e.markValue() * e.Weight
			continue
		}
		if remaining >= 0 {
			return 0, appErrors.ErrMultipleRemainingAssessments
		}
		remaining = i
	}
	if remaining < 0 {
		return 0, appErrors.ErrNoRemainingAssessment
	}
	weight := entries[remaining].Weight
	if weight == 0 {
		return 0, appErrors.ErrZeroRemainingWeight
	}
	return (target - completedSum) / weight, nil
}
