package billing

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var isoDatePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// ParseISODate parses a strict YYYY-MM-DD string into a local calendar date.
// The string is decomposed into year/month/day integers by hand and the date
// is constructed from the parts. It is never handed to a generic date parser:
// generic parsing applies UTC or platform-locale interpretation and silently
// shifts the date by one day near midnight boundaries depending on the
// caller's time zone.
func ParseISODate(value string) (time.Time, error) {
	m := isoDatePattern.FindStringSubmatch(value)
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}

	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	// time.Date normalizes out-of-range components (2024-13-01 becomes
	// 2025-01-01), so a round-trip mismatch means the parts were not a real
	// calendar date.
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, fmt.Errorf("invalid date %q: not a valid calendar date", value)
	}
	return t, nil
}

// Midnight strips the time-of-day component so comparisons are date-only.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NextBillingDate returns the earliest date strictly after today that lies on
// the recurrence schedule anchored at start. A start in the future is its own
// first bill and is returned unchanged. A start equal to today resolves to the
// next period: a subscription billed today shows its next date, not today's.
// "Days until due" displays depend on that edge exactly.
//
// This is a linear walk, not a closed-form jump: calendar months and years are
// not constant-length, so repeated calendar-aware increments are the only
// approach that stays correct across month and year boundaries. The iteration
// count is bounded by cycles elapsed since start, which is small for
// interactive use.
func NextBillingDate(start time.Time, cycle Cycle, today time.Time) time.Time {
	start = Midnight(start)
	today = Midnight(today)

	if start.After(today) {
		return start
	}

	if step := cycle.months(); step > 0 {
		// Month-based cycles anchor on the start's day-of-month so a
		// month-end start clamps (Jan 31 + 1 month = Feb 28/29) instead of
		// overflowing into March.
		for n := step; ; n += step {
			next := addMonthsClamped(start, n)
			if next.After(today) {
				return next
			}
		}
	}

	next := start
	for !next.After(today) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

// NextBillingDateISO is NextBillingDate with a YYYY-MM-DD anchor.
func NextBillingDateISO(start string, cycle Cycle, today time.Time) (time.Time, error) {
	anchor, err := ParseISODate(start)
	if err != nil {
		return time.Time{}, err
	}
	return NextBillingDate(anchor, cycle, today), nil
}

// DaysUntil returns the whole days from today until due, negative when due is
// in the past.
func DaysUntil(today, due time.Time) int {
	return daysBetween(today, due)
}

// addMonthsClamped adds n calendar months, clamping the day to the last day
// of the target month rather than letting it normalize forward.
func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := lastDayOfMonth(firstOfTarget); d > last {
		d = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, 0, 0, 0, 0, t.Location())
}

func lastDayOfMonth(t time.Time) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// daysBetween counts whole days from a to b. Both endpoints are rebuilt as
// UTC midnights first so DST transitions in local time cannot produce 23- or
// 25-hour days and skew the count.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
