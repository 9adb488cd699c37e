package analysis

import (
	"fmt"
)

// UsageClass buckets a month by its casual and registered volume.
type UsageClass string

const (
	ClassLow    UsageClass = "Low"
	ClassMedium UsageClass = "Medium"
	ClassHigh   UsageClass = "High"
)

// Classes lists the usage classes from lowest to highest.
func Classes() []UsageClass {
	return []UsageClass{ClassLow, ClassMedium, ClassHigh}
}

// UserPair is a (casual, registered) threshold.
type UserPair struct {
	Casual     int `json:"casual"`
	Registered int `json:"registered"`
}

// Thresholds are the two upper bounds separating Low, Medium and High.
type Thresholds struct {
	Low    UserPair `json:"low"`
	Medium UserPair `json:"medium"`
}

// DefaultThresholds returns the stock bounds: low (30000, 200000) and
// medium (50000, 300000).
func DefaultThresholds() Thresholds {
	return Thresholds{
		Low:    UserPair{Casual: 30000, Registered: 200000},
		Medium: UserPair{Casual: 50000, Registered: 300000},
	}
}

// Validate requires non-negative bounds with Medium >= Low on both axes.
func (t Thresholds) Validate() error {
	if t.Low.Casual < 0 || t.Low.Registered < 0 || t.Medium.Casual < 0 || t.Medium.Registered < 0 {
		return fmt.Errorf("%w: thresholds must be non-negative", ErrInvalidThresholds)
	}
	if t.Medium.Casual < t.Low.Casual || t.Medium.Registered < t.Low.Registered {
		return fmt.Errorf("%w: medium (%d, %d) must not be below low (%d, %d)", ErrInvalidThresholds,
			t.Medium.Casual, t.Medium.Registered, t.Low.Casual, t.Low.Registered)
	}
	return nil
}

// Of classifies one (casual, registered) pair. Every pair gets a class.
func (t Thresholds) Of(casual, registered int) UsageClass {
	switch {
	case casual < t.Low.Casual && registered < t.Low.Registered:
		return ClassLow
	case casual < t.Medium.Casual && registered < t.Medium.Registered:
		return ClassMedium
	default:
		return ClassHigh
	}
}

// ClassifiedMonth is a month with its usage class.
type ClassifiedMonth struct {
	MonthUsers
	Class UsageClass `json:"class"`
}

// Classify assigns a usage class to every month.
func Classify(months []MonthUsers, t Thresholds) []ClassifiedMonth {
	out := make([]ClassifiedMonth, len(months))
	for i, m := range months {
		out[i] = ClassifiedMonth{MonthUsers: m, Class: t.Of(m.Casual, m.Registered)}
	}
	return out
}
