package availability

import (
	"rentspace/internal/domain/shared/daterange"
)

// Policy decides whether a candidate range lies within the listing's open dates.
type Policy interface {
	Covers(r daterange.DateRange) bool
}

// AllowListPolicy covers a range only when one single window contains it.
// Adjacent or overlapping windows are not merged, so a stay spanning two
// back-to-back windows is rejected.
type AllowListPolicy struct {
	Windows []Window
}

func (p AllowListPolicy) Covers(r daterange.DateRange) bool {
	if r.Validate() != nil {
		return false
	}
	for _, w := range p.Windows {
		if w.Range.Contains(r) {
			return true
		}
	}
	return false
}

// DenyListPolicy requires an available flag for every occupied date.
// A missing date counts as blocked.
type DenyListPolicy struct {
	Days map[string]DayFlag
}

func (p DenyListPolicy) Covers(r daterange.DateRange) bool {
	if r.Validate() != nil {
		return false
	}
	for _, d := range r.EachDay() {
		flag, ok := p.Days[DateKey(d)]
		if !ok || !flag.Available {
			return false
		}
	}
	return true
}
