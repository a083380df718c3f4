package press

import (
	"fmt"
	"math"
)

const (
	// DefaultQualityStep is how much each continuation lowers quality.
	DefaultQualityStep = 0.05
	// DefaultQualityFloor is the lowest quality a continuation may request.
	DefaultQualityFloor = 0.6
	// MinQualityStep is the smallest step that survives rounding to hundredths.
	MinQualityStep = 0.01
)

// QualitySchedule decides the quality of the next continuation pass.
// The encoder never clamps; callers apply the floor through Next.
type QualitySchedule struct {
	Step  float64
	Floor float64
}

// DefaultQualitySchedule returns the default decay schedule.
func DefaultQualitySchedule() QualitySchedule {
	return QualitySchedule{Step: DefaultQualityStep, Floor: DefaultQualityFloor}
}

// Validate checks the schedule parameters.
func (s QualitySchedule) Validate() error {
	if s.Step < MinQualityStep || s.Step > 1 {
		return &ValidationError{Field: "qualityStep", Reason: fmt.Sprintf("must be within [%g,1], got %g", MinQualityStep, s.Step)}
	}
	if s.Floor <= 0 || s.Floor > 1 {
		return &ValidationError{Field: "qualityFloor", Reason: fmt.Sprintf("must be within (0,1], got %g", s.Floor)}
	}
	return nil
}

// Next returns the quality for the pass after one encoded at current.
// ok is false once current is already at or below the floor, or when the
// step is too small to lower the rounded quality.
func (s QualitySchedule) Next(current float64) (next float64, ok bool) {
	if current <= s.Floor+1e-9 {
		return s.Floor, false
	}
	// Round to hundredths so 0.8-0.05 lands on 0.75, not 0.7500000000000001.
	next = math.Round((current-s.Step)*100) / 100
	if next < s.Floor {
		next = s.Floor
	}
	if next >= current {
		return current, false
	}
	return next, true
}
