package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used on every surface.
const DateLayout = "2006-01-02"

// ScopeType distinguishes a single as-of date from a date interval.
type ScopeType string

// Temporal scope types.
const (
	ScopeDate     ScopeType = "date"
	ScopeInterval ScopeType = "interval"
)

// TemporalScope is a resolved as-of date expression.
// For ScopeDate only Date is set; for ScopeInterval Start and End are set.
type TemporalScope struct {
	Type  ScopeType
	Date  *time.Time
	Start *time.Time
	End   *time.Time
}

// EffectiveDate returns the date used for version resolution.
// An interval resolves at its end date.
func (s TemporalScope) EffectiveDate() time.Time {
	if s.Type == ScopeInterval && s.End != nil {
		return *s.End
	}
	if s.Date != nil {
		return *s.Date
	}
	return time.Time{}
}

// String renders the scope for prompts and logs.
func (s TemporalScope) String() string {
	if s.Type == ScopeInterval && s.Start != nil && s.End != nil {
		return s.Start.Format(DateLayout) + ".." + s.End.Format(DateLayout)
	}
	if s.Date != nil {
		return s.Date.Format(DateLayout)
	}
	return ""
}

var (
	yearPattern = regexp.MustCompile(`^\d{4}$`)
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// ParseTemporalScope resolves an as-of expression relative to today.
// Supported forms: "current", "last year", a bare year "YYYY" and a literal
// date "YYYY-MM-DD". Anything else is ErrInvalidInput.
func ParseTemporalScope(expr string, today time.Time) (TemporalScope, error) {
	normalized := strings.ToLower(strings.TrimSpace(expr))
	today = TruncateDate(today)

	switch {
	case normalized == "current":
		return DateScope(today), nil
	case normalized == "last year":
		return yearScope(today.Year() - 1), nil
	case yearPattern.MatchString(normalized):
		year, _ := strconv.Atoi(normalized)
		return yearScope(year), nil
	case datePattern.MatchString(normalized):
		d, err := ParseDate(normalized)
		if err != nil {
			return TemporalScope{}, err
		}
		return DateScope(d), nil
	default:
		return TemporalScope{}, fmt.Errorf("%w: unsupported date format %q", ErrInvalidInput, expr)
	}
}

// DateScope returns a single-date scope.
func DateScope(d time.Time) TemporalScope {
	d = TruncateDate(d)
	return TemporalScope{Type: ScopeDate, Date: &d}
}

func yearScope(year int) TemporalScope {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return TemporalScope{Type: ScopeInterval, Start: &start, End: &end}
}

// ParseDate parses a strict ISO calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrInvalidInput, s)
	}
	return d, nil
}

// TruncateDate drops the time of day, keeping the calendar date in UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
