// Package dates turns locale-ambiguous receipt date strings into calendar
// dates. Parsing never fails: when nothing matches, the reference time is
// returned verbatim so a bad date cannot sink an otherwise good extraction.
package dates

import (
	"strings"
	"time"
)

// pivotYears is how far into the future a two-digit year may land before it
// is pushed back a century. Given a reference year of 2025, "85" resolves to
// 1985 rather than 2085.
const pivotYears = 10

type pattern struct {
	layout    string
	shortYear bool
}

// Ordered: first match wins. Full timestamps come before short forms, ISO
// before locale forms, month-first before day-first, four-digit years before
// two-digit ones.
var patterns = []pattern{
	{layout: time.RFC3339},
	{layout: "2006-01-02T15:04:05"},
	{layout: "2006-01-02 15:04:05"},
	{layout: "2006-01-02"},
	{layout: "2006/01/02"},
	{layout: "01/02/2006"},
	{layout: "02/01/2006"},
	{layout: "01-02-2006"},
	{layout: "02-01-2006"},
	{layout: "02.01.2006"},
	{layout: "01/02/06", shortYear: true},
	{layout: "02/01/06", shortYear: true},
	{layout: "02.01.06", shortYear: true},
	{layout: "02-01-06", shortYear: true},
	{layout: "January 2, 2006"},
	{layout: "Jan 2, 2006"},
	{layout: "January 2 2006"},
	{layout: "Jan 2 2006"},
	{layout: "2 January 2006"},
	{layout: "2 Jan 2006"},
	{layout: "2. January 2006"},
}

// Normalize parses a receipt date string against the pattern list and
// applies two corrections:
//
//   - Two-digit years resolve to the 2000s unless that would place the date
//     more than pivotYears in the future, in which case the prior century is
//     used instead.
//   - A parsed year more than one year behind the reference year (a known
//     failure mode of some format/locale combinations) is replaced by the
//     reference year, keeping month and day. Dates deliberately pivoted to
//     the prior century are exempt.
//
// If no pattern matches, now is returned unchanged.
func Normalize(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return now
	}

	for _, p := range patterns {
		parsed, err := time.Parse(p.layout, s)
		if err != nil {
			continue
		}

		pivotedBack := false
		if p.shortYear {
			parsed, pivotedBack = applyCenturyPivot(parsed, now)
		}

		if !pivotedBack && parsed.Year() < now.Year()-1 {
			parsed = time.Date(now.Year(), parsed.Month(), parsed.Day(),
				parsed.Hour(), parsed.Minute(), parsed.Second(), 0, parsed.Location())
		}

		return parsed
	}

	return now
}

// applyCenturyPivot normalizes a two-digit-year parse to the 21st century,
// falling back a century when that lands implausibly far in the future.
func applyCenturyPivot(parsed time.Time, now time.Time) (time.Time, bool) {
	year := 2000 + parsed.Year()%100
	if year > now.Year()+pivotYears {
		year -= 100
	}
	corrected := time.Date(year, parsed.Month(), parsed.Day(),
		parsed.Hour(), parsed.Minute(), parsed.Second(), 0, parsed.Location())
	return corrected, year < 2000
}
