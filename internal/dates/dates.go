// Package dates resolves incident dates mentioned in intake calls.
//
// Callers speak about dates loosely ("last Friday", "april 18", "2024-01-15"),
// so the helpers here turn those phrases into absolute dates relative to an
// injected "now". Every calculation is done at UTC-midnight granularity.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISODate is the layout used for anchor dates and normalized incident dates.
const ISODate = "2006-01-02"

const day = 24 * time.Hour

// futureRollover is how far past "now" a year-less date may land before it
// is assumed to refer to the previous year.
const futureRollover = 30 * day

var parseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	ISODate,
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"Monday, January 2, 2006",
}

var (
	yearPattern     = regexp.MustCompile(`\b\d{4}\b`)
	isoPrefix       = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	monthDayPattern = regexp.MustCompile(`^\s*([A-Za-z]+)\s+(\d{1,2})\s*$`)
	lastWeekday     = regexp.MustCompile(`\blast (sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)
	twoWeekdaysAgo  = regexp.MustCompile(`\btwo (sunday|monday|tuesday|wednesday|thursday|friday|saturday)s ago\b`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseMaybeISO parses s with the layouts commonly produced by intake forms
// and language models. The result is always in UTC.
func ParseMaybeISO(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Midnight truncates t to midnight UTC of the same UTC calendar day.
func Midnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysToPreviousWeekday returns how many days back the most recent target
// weekday is. It is zero when current already is target.
func DaysToPreviousWeekday(current, target time.Weekday) int {
	return (int(current) + 7 - int(target)) % 7
}

// resolveRelative resolves a relative phrase against now. ok is false when
// the phrase is not recognised.
func resolveRelative(phrase string, now time.Time) (time.Time, bool) {
	lower := strings.ToLower(phrase)
	today := Midnight(now)

	switch {
	case strings.Contains(lower, "yesterday"):
		return today.AddDate(0, 0, -1), true
	case lastWeekday.MatchString(lower):
		target := weekdays[lastWeekday.FindStringSubmatch(lower)[1]]
		return today.AddDate(0, 0, -DaysToPreviousWeekday(today.Weekday(), target)), true
	case twoWeekdaysAgo.MatchString(lower):
		target := weekdays[twoWeekdaysAgo.FindStringSubmatch(lower)[1]]
		return today.AddDate(0, 0, -(DaysToPreviousWeekday(today.Weekday(), target) + 7)), true
	case strings.Contains(lower, "last week"):
		return today.AddDate(0, 0, -7), true
	case strings.Contains(lower, "two weeks ago"):
		return today.AddDate(0, 0, -14), true
	}
	return time.Time{}, false
}

// AnchorDate resolves the reference date used to interpret relative time
// phrases. An empty incident date anchors on now, a parseable date anchors on
// itself, and a recognised relative phrase is resolved against now. Anything
// else falls back to now.
func AnchorDate(incidentDate string, now time.Time) time.Time {
	if strings.TrimSpace(incidentDate) == "" {
		return Midnight(now)
	}
	if t, ok := ParseMaybeISO(incidentDate); ok {
		return Midnight(t)
	}
	if t, ok := resolveRelative(incidentDate, now); ok {
		return t
	}
	return Midnight(now)
}

// AnchorDateISO is AnchorDate formatted as YYYY-MM-DD.
func AnchorDateISO(incidentDate string, now time.Time) string {
	return AnchorDate(incidentDate, now).Format(ISODate)
}

// NormalizeIncidentDate turns a caller-supplied incident date into something
// DaysSince can parse.
//
// Strings that already carry a four-digit year pass through untouched.
// "Month D" gets the current year, or the previous one when that would put
// the date more than 30 days in the future. Relative phrases resolve against
// now. Unrecognised input is returned as-is so the caller can still treat it
// as "present but unresolvable".
func NormalizeIncidentDate(incidentDate string, now time.Time) string {
	if incidentDate == "" {
		return ""
	}
	if yearPattern.MatchString(incidentDate) || isoPrefix.MatchString(incidentDate) {
		return incidentDate
	}

	if m := monthDayPattern.FindStringSubmatch(incidentDate); m != nil {
		d, err := strconv.Atoi(m[2])
		if err == nil {
			if t, ok := monthDay(m[1], d, now.UTC().Year()); ok {
				if t.Sub(now) > futureRollover {
					t, _ = monthDay(m[1], d, now.UTC().Year()-1)
				}
				return t.Format(ISODate)
			}
		}
		return incidentDate
	}

	if t, ok := resolveRelative(incidentDate, now); ok {
		return t.Format(ISODate)
	}
	return incidentDate
}

func monthDay(month string, d, year int) (time.Time, bool) {
	s := month + " " + strconv.Itoa(d) + " " + strconv.Itoa(year)
	for _, layout := range []string{"January 2 2006", "Jan 2 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// DaysSince returns the whole number of days between the incident date and
// now, both truncated to UTC midnight. ok is false when the date is empty or
// cannot be parsed. Future dates yield negative values.
func DaysSince(incidentDate string, now time.Time) (int, bool) {
	t, ok := ParseMaybeISO(incidentDate)
	if !ok {
		return 0, false
	}
	diff := Midnight(now).Sub(Midnight(t))
	return int(diff / day), true
}
