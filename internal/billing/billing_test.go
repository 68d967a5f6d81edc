package billing_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stackspendlabs/stackspend/internal/billing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestParseCycle(t *testing.T) {
	assert.Equal(t, billing.CycleWeekly, billing.ParseCycle("weekly"))
	assert.Equal(t, billing.CycleQuarterly, billing.ParseCycle(" Quarterly "))
	assert.Equal(t, billing.CycleAnnual, billing.ParseCycle("ANNUAL"))

	// Unknown values fall back to monthly instead of erroring.
	assert.Equal(t, billing.CycleMonthly, billing.ParseCycle("biweekly"))
	assert.Equal(t, billing.CycleMonthly, billing.ParseCycle(""))
}

func TestNextBillingDateFutureStartReturnedUnchanged(t *testing.T) {
	today := date(2024, time.March, 20)
	start := date(2024, time.May, 1)

	for _, cycle := range []billing.Cycle{
		billing.CycleWeekly, billing.CycleMonthly, billing.CycleQuarterly, billing.CycleAnnual,
	} {
		assert.Equal(t, start, billing.NextBillingDate(start, cycle, today), "cycle %s", cycle)
	}
}

func TestNextBillingDateMonthlyWalk(t *testing.T) {
	// Two increments land on or before today (Feb 15, Mar 15); the third is
	// the answer.
	today := date(2024, time.March, 20)
	next := billing.NextBillingDate(date(2024, time.January, 15), billing.CycleMonthly, today)
	assert.Equal(t, date(2024, time.April, 15), next)
}

func TestNextBillingDateStartTodayAdvances(t *testing.T) {
	today := date(2024, time.March, 20)

	next := billing.NextBillingDate(today, billing.CycleMonthly, today)
	assert.Equal(t, date(2024, time.April, 20), next)

	next = billing.NextBillingDate(today, billing.CycleWeekly, today)
	assert.Equal(t, date(2024, time.March, 27), next)
}

func TestNextBillingDateWeeklyExactSevenDays(t *testing.T) {
	today := date(2024, time.March, 20)
	start := date(2024, time.January, 1)

	next := billing.NextBillingDate(start, billing.CycleWeekly, today)
	assert.True(t, next.After(today))

	elapsed := int(next.Sub(start).Hours() / 24)
	assert.Zero(t, elapsed%7, "next date must be a whole number of weeks from start")
	assert.Less(t, int(next.Sub(today).Hours()/24), 8)
}

func TestNextBillingDateMonthEndClamps(t *testing.T) {
	// Jan 31 anchor: February clamps to its last day, leap year included.
	next := billing.NextBillingDate(date(2024, time.January, 31), billing.CycleMonthly, date(2024, time.February, 1))
	assert.Equal(t, date(2024, time.February, 29), next)

	next = billing.NextBillingDate(date(2023, time.January, 31), billing.CycleMonthly, date(2023, time.February, 1))
	assert.Equal(t, date(2023, time.February, 28), next)

	// The anchor day is preserved in later months rather than drifting to the
	// clamped day.
	next = billing.NextBillingDate(date(2024, time.January, 31), billing.CycleMonthly, date(2024, time.March, 1))
	assert.Equal(t, date(2024, time.March, 31), next)
}

func TestNextBillingDateQuarterlyStepsThreeCalendarMonths(t *testing.T) {
	today := date(2024, time.July, 1)
	next := billing.NextBillingDate(date(2024, time.January, 15), billing.CycleQuarterly, today)
	// Apr 15 and Jul 15: Apr 15 <= today < Jul 15.
	assert.Equal(t, date(2024, time.July, 15), next)
}

func TestNextBillingDateAnnualLeapDayAnchor(t *testing.T) {
	next := billing.NextBillingDate(date(2024, time.February, 29), billing.CycleAnnual, date(2024, time.June, 1))
	assert.Equal(t, date(2025, time.February, 28), next)
}

func TestNextBillingDateMonotonicOverOldStarts(t *testing.T) {
	today := date(2024, time.March, 20)
	for _, cycle := range []billing.Cycle{
		billing.CycleWeekly, billing.CycleMonthly, billing.CycleQuarterly, billing.CycleAnnual,
	} {
		next := billing.NextBillingDate(date(2015, time.June, 3), cycle, today)
		assert.True(t, next.After(today), "cycle %s returned %s", cycle, next)
	}
}

func TestNextBillingDateISO(t *testing.T) {
	today := date(2024, time.March, 20)

	next, err := billing.NextBillingDateISO("2024-01-15", billing.CycleMonthly, today)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.April, 15), next)

	_, err = billing.NextBillingDateISO("01/15/2024", billing.CycleMonthly, today)
	assert.Error(t, err)
}

func TestProRatedAmountBeforeStart(t *testing.T) {
	got := billing.ProRatedAmount(100, date(2024, time.September, 1), billing.CycleMonthly, date(2024, time.August, 20))
	assert.Zero(t, got)
}

func TestProRatedAmountFirstPeriodComplete(t *testing.T) {
	// 47 elapsed days >= 30.44 period days: the full amount has accrued.
	got := billing.ProRatedAmount(100, date(2024, time.August, 4), billing.CycleMonthly, date(2024, time.September, 20))
	assert.Equal(t, 100.0, got)
}

func TestProRatedAmountPartialPeriod(t *testing.T) {
	// 15 of 30.44 days elapsed.
	got := billing.ProRatedAmount(100, date(2024, time.August, 4), billing.CycleMonthly, date(2024, time.August, 19))
	assert.InDelta(t, 100*15/30.44, got, 1e-9)
}

func TestProRatedAmountBounds(t *testing.T) {
	start := date(2024, time.January, 1)
	for _, cycle := range []billing.Cycle{
		billing.CycleWeekly, billing.CycleMonthly, billing.CycleQuarterly, billing.CycleAnnual,
	} {
		for days := 0; days <= 400; days += 13 {
			got := billing.ProRatedAmount(80, start, cycle, start.AddDate(0, 0, days))
			assert.GreaterOrEqual(t, got, 0.0, "cycle %s day %d", cycle, days)
			assert.LessOrEqual(t, got, 80.0, "cycle %s day %d", cycle, days)
		}
	}
}

func TestAccumulatedCostDocumentedScenario(t *testing.T) {
	// 47 days at $100/month: 100 x (47 / 30.44), the documented "~$155" case.
	got := billing.AccumulatedCost(100, date(2024, time.August, 4), billing.CycleMonthly, date(2024, time.September, 20))
	assert.InDelta(t, 100*47/30.44, got, 1e-9)
	assert.InDelta(t, 154.40, got, 0.01)
}

func TestAccumulatedCostStartAfterEnd(t *testing.T) {
	got := billing.AccumulatedCost(100, date(2024, time.September, 1), billing.CycleMonthly, date(2024, time.August, 1))
	assert.Zero(t, got)
}

func TestAccumulatedCostMonthlyEquivalents(t *testing.T) {
	start := date(2024, time.January, 1)
	end := start.AddDate(0, 0, 61)
	months := 61.0 / 30.44

	assert.InDelta(t, 25*(30.44/7)*months, billing.AccumulatedCost(25, start, billing.CycleWeekly, end), 1e-9)
	assert.InDelta(t, 100*months, billing.AccumulatedCost(100, start, billing.CycleMonthly, end), 1e-9)
	assert.InDelta(t, 300.0/3*months, billing.AccumulatedCost(300, start, billing.CycleQuarterly, end), 1e-9)
	assert.InDelta(t, 1200.0/12*months, billing.AccumulatedCost(1200, start, billing.CycleAnnual, end), 1e-9)
}

func TestAccumulatedCostMonotonicInEnd(t *testing.T) {
	start := date(2023, time.November, 11)
	prev := 0.0
	for days := 0; days <= 365; days += 7 {
		got := billing.AccumulatedCost(49.99, start, billing.CycleQuarterly, start.AddDate(0, 0, days))
		assert.GreaterOrEqual(t, got, prev, "day %d", days)
		prev = got
	}
}

func TestParseISODate(t *testing.T) {
	parsed, err := billing.ParseISODate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.February, 29), parsed)

	for _, bad := range []string{
		"2024-13-01", // month out of range despite matching the shape
		"2023-02-29", // not a leap year
		"2024-00-10",
		"2024-01-00",
		"01/15/2024",
		"15/01/2024",
		"2024-1-5",
		"2024-01-05T00:00:00Z",
		"",
	} {
		_, err := billing.ParseISODate(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestParseISODateIsLocalCalendarDate(t *testing.T) {
	parsed, err := billing.ParseISODate("2024-01-15")
	require.NoError(t, err)

	// The parsed value is a local midnight, never a UTC instant that could
	// render as the previous day in western time zones.
	y, m, d := parsed.Date()
	assert.Equal(t, 2024, y)
	assert.Equal(t, time.January, m)
	assert.Equal(t, 15, d)
	assert.Equal(t, time.Local, parsed.Location())
}

func TestValidateDateFormat(t *testing.T) {
	today := date(2024, time.March, 20)

	res := billing.ValidateDateFormat("2024-01-15", today)
	assert.True(t, res.Valid)
	assert.Equal(t, date(2024, time.January, 15), res.Date)
	assert.Empty(t, res.Message)

	res = billing.ValidateDateFormat("2024-13-01", today)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Message, "2024-13-01")

	res = billing.ValidateDateFormat("2022-12-01", today)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Message, "past")

	res = billing.ValidateDateFormat("2025-06-01", today)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Message, "future")

	// Window edges are inclusive.
	assert.True(t, billing.ValidateDateFormat("2023-03-20", today).Valid)
	assert.True(t, billing.ValidateDateFormat("2025-03-20", today).Valid)
}

func TestFormatRoundTrip(t *testing.T) {
	for _, s := range []string{"2024-01-05", "2024-02-29", "1999-12-31", "2024-10-01"} {
		parsed, err := billing.ParseISODate(s)
		require.NoError(t, err)
		assert.Equal(t, s, billing.FormatDateForInput(parsed))
	}
}

func TestFormatDateForDisplay(t *testing.T) {
	d := date(2024, time.January, 5)

	assert.Equal(t, "Jan 5, 2024", billing.FormatDateForDisplay(d, billing.StyleUS))
	assert.Equal(t, "5 Jan 2024", billing.FormatDateForDisplay(d, billing.StyleEU))
	assert.Equal(t, "2024-01-05", billing.FormatDateForDisplay(d, billing.StyleISO))

	for _, style := range []billing.DisplayStyle{billing.StyleUS, billing.StyleEU, billing.StyleISO} {
		out := billing.FormatDateForDisplay(d, style)
		assert.False(t, strings.Contains(out, "/"), "style %s emitted %q", style, out)
	}
}

func TestDaysUntil(t *testing.T) {
	today := date(2024, time.March, 20)
	assert.Equal(t, 26, billing.DaysUntil(today, date(2024, time.April, 15)))
	assert.Equal(t, 0, billing.DaysUntil(today, today))
	assert.Equal(t, -5, billing.DaysUntil(today, date(2024, time.March, 15)))
}
