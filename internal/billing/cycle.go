// Package billing implements the billing-date and cost-accrual arithmetic
// shared by the subscription, lifetime deal and reporting modules: next
// occurrence of a recurring charge, pro-rated partial-period amounts, and
// accumulated spend over an elapsed span. Everything here is a pure function
// over plain dates and numbers; no I/O, no state.
package billing

import "strings"

// Cycle is the closed set of supported billing recurrence periods.
type Cycle string

const (
	CycleWeekly    Cycle = "weekly"
	CycleMonthly   Cycle = "monthly"
	CycleQuarterly Cycle = "quarterly"
	CycleAnnual    Cycle = "annual"
)

// Nominal period lengths in days, as calendar averages. A period here is the
// recurring abstraction, not one concrete interval, so averages are used on
// purpose. ProRatedAmount and AccumulatedCost share these constants; they must
// never diverge or mid-period and total figures stop agreeing with each other.
const (
	daysPerWeek    = 7.0
	daysPerMonth   = 30.44
	daysPerQuarter = 91.31
	daysPerYear    = 365.25
)

// ParseCycle maps free-form input onto the closed cycle set. Unrecognized
// values fall back to monthly: the cycle is validated at the form layer before
// it reaches this package, so an unknown value is a defense-in-depth path,
// not a user-facing error.
func ParseCycle(value string) Cycle {
	switch Cycle(strings.ToLower(strings.TrimSpace(value))) {
	case CycleWeekly:
		return CycleWeekly
	case CycleMonthly:
		return CycleMonthly
	case CycleQuarterly:
		return CycleQuarterly
	case CycleAnnual:
		return CycleAnnual
	default:
		return CycleMonthly
	}
}

// Valid reports whether c is one of the four supported cycles.
func (c Cycle) Valid() bool {
	switch c {
	case CycleWeekly, CycleMonthly, CycleQuarterly, CycleAnnual:
		return true
	default:
		return false
	}
}

// PeriodDays returns the nominal period length used by the accrual math.
func (c Cycle) PeriodDays() float64 {
	switch c {
	case CycleWeekly:
		return daysPerWeek
	case CycleQuarterly:
		return daysPerQuarter
	case CycleAnnual:
		return daysPerYear
	case CycleMonthly:
		return daysPerMonth
	default:
		return daysPerMonth
	}
}

// MonthlyFactor converts a per-period amount into its monthly equivalent.
func (c Cycle) MonthlyFactor() float64 {
	switch c {
	case CycleWeekly:
		return daysPerMonth / daysPerWeek
	case CycleQuarterly:
		return 1.0 / 3.0
	case CycleAnnual:
		return 1.0 / 12.0
	case CycleMonthly:
		return 1.0
	default:
		return 1.0
	}
}

// months returns the calendar-month step of one cycle increment, or 0 for
// cycles that advance by whole days. The next-billing-date walk steps by
// calendar months (quarterly is exactly three months, not the 91.31-day
// average): the walk needs calendar correctness across uneven month lengths,
// while the accrual constants need a stable average. Two representations of
// "quarterly", kept deliberately distinct.
func (c Cycle) months() int {
	switch c {
	case CycleWeekly:
		return 0
	case CycleQuarterly:
		return 3
	case CycleAnnual:
		return 12
	case CycleMonthly:
		return 1
	default:
		return 1
	}
}
