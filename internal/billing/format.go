package billing

import (
	"fmt"
	"time"
)

// DisplayStyle selects a display rendering for dates. Every style is
// unambiguous across locales: US and EU render month names, ISO renders the
// dashed numeric form. None of them ever emit a slash-separated numeric date,
// which is unreadable across MM/DD vs DD/MM locales.
type DisplayStyle string

const (
	StyleUS  DisplayStyle = "US"
	StyleEU  DisplayStyle = "EU"
	StyleISO DisplayStyle = "ISO"
)

// FormatDateForInput renders a date as YYYY-MM-DD. Round-trips with
// ParseISODate.
func FormatDateForInput(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatDateForDisplay renders a date for human display. Go's time formatting
// always uses English month names regardless of the host's configured locale,
// which is exactly the forced-locale behavior required here.
func FormatDateForDisplay(t time.Time, style DisplayStyle) string {
	switch style {
	case StyleEU:
		return t.Format("2 Jan 2006")
	case StyleISO:
		return t.Format("2006-01-02")
	case StyleUS:
		return t.Format("Jan 2, 2006")
	default:
		return t.Format("Jan 2, 2006")
	}
}

// DateValidation is the structured result of validating a user-entered date
// string. Callers render Message as an inline field error; nothing here
// panics or propagates an exception-style failure.
type DateValidation struct {
	Valid   bool
	Date    time.Time
	Message string
}

// ValidateDateFormat checks that value is a strict YYYY-MM-DD calendar date
// falling within one year of today in either direction. The window is a
// business-policy guard, not a systems constraint: the user corrects the
// input and retries.
func ValidateDateFormat(value string, today time.Time) DateValidation {
	parsed, err := ParseISODate(value)
	if err != nil {
		return DateValidation{Message: err.Error()}
	}

	today = Midnight(today)
	if parsed.Before(today.AddDate(-1, 0, 0)) {
		return DateValidation{
			Message: fmt.Sprintf("date %s is more than one year in the past", value),
		}
	}
	if parsed.After(today.AddDate(1, 0, 0)) {
		return DateValidation{
			Message: fmt.Sprintf("date %s is more than one year in the future", value),
		}
	}

	return DateValidation{Valid: true, Date: parsed}
}
