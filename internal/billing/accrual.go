package billing

import "time"

// ProRatedAmount returns the fraction of fullAmount attributable to the
// partial period between start and ref. It answers "how much of this period's
// charge has accrued so far" for mid-period expense reporting; AccumulatedCost
// answers the separate question of total spend since the subscription began.
//
// Nothing has accrued before start. Once the elapsed days reach the nominal
// period length the first period is complete and the full amount is returned.
func ProRatedAmount(fullAmount float64, start time.Time, cycle Cycle, ref time.Time) float64 {
	if fullAmount <= 0 {
		return 0
	}

	start = Midnight(start)
	ref = Midnight(ref)
	if start.After(ref) {
		return 0
	}

	periodDays := cycle.PeriodDays()
	elapsed := float64(daysBetween(start, ref))
	if elapsed >= periodDays {
		return fullAmount
	}

	amount := fullAmount * (elapsed / periodDays)
	if amount < 0 {
		return 0
	}
	return amount
}

// AccumulatedCost returns total spend from start through end, modeling the
// subscription as a continuously accruing cost rather than discretely billed.
// Actual billing is discrete; the continuous model is intentional for
// reporting ("how much have we spent on this service so far") and shares the
// 30.44-day month constant with ProRatedAmount so mid-period and total
// figures stay consistent.
func AccumulatedCost(amount float64, start time.Time, cycle Cycle, end time.Time) float64 {
	if amount <= 0 {
		return 0
	}

	start = Midnight(start)
	end = Midnight(end)
	if start.After(end) {
		return 0
	}

	monthlyEquivalent := amount * cycle.MonthlyFactor()
	monthsElapsed := float64(daysBetween(start, end)) / daysPerMonth

	total := monthsElapsed * monthlyEquivalent
	if total < 0 {
		return 0
	}
	return total
}
