// Package extract provides the independent, deterministic entity extractors
// used by the classification pipeline: dates, durations, locations, and
// structured subtask lists. Each extractor is a pure function over a single
// segment — a miss is represented by a zero return value, never an error, and
// malformed numeric input is rejected by range checks rather than panics.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/marchewka/scribeline/pkg/types"
)

// Date pattern priority is fixed: an ISO date always wins over other numeric
// formats, numeric formats win over month names, and explicit dates win over
// relative phrases. The first matching tier is used and later tiers are not
// consulted, which keeps mixed inputs deterministic.
var (
	isoDateRe      = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	usNumericRe    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	ymdNumericRe   = regexp.MustCompile(`\b(\d{4})/(\d{1,2})/(\d{1,2})\b`)
	monthNameRe    = regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?\b`)
	dayMonthRe     = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?(?:,?\s+(\d{4}))?\b`)
	relativeRe     = regexp.MustCompile(`(?i)\b(today|tonight|tomorrow|day after tomorrow)\b`)
	nextWeekdayRe  = regexp.MustCompile(`(?i)\b(?:next|this|on)\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	bareWeekdayRe  = regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	clockTimeRe    = regexp.MustCompile(`(?i)\b(?:at\s+)?(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	clock24TimeRe  = regexp.MustCompile(`\b(?:at\s+)(\d{1,2}):(\d{2})\b`)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var weekdays = map[string]time.Weekday{
	"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
	"sunday": time.Sunday,
}

// Date extracts a temporal reference from segment into a TimeBlock.
//
// Returned values follow the tier that matched: explicit dates populate Date
// (YYYY-MM-DD); relative phrases populate WhenText for later resolution; a
// clock time populates Time (HH:mm, 24h) independently of the date tiers.
// The second return value is false when nothing temporal was found.
//
// Numeric components are range-checked (month 1–12, day 1–31, year
// 1900–2100); out-of-range candidates are skipped as if no match occurred —
// the extractor never fails on malformed input.
func Date(segment string) (types.TimeBlock, bool) {
	var tb types.TimeBlock
	found := false

	if m := isoDateRe.FindStringSubmatch(segment); m != nil {
		if d, ok := buildDate(m[1], m[2], m[3]); ok {
			tb.Date = d
			found = true
		}
	}
	if !found {
		if m := usNumericRe.FindStringSubmatch(segment); m != nil {
			if d, ok := buildDate(m[3], m[1], m[2]); ok {
				tb.Date = d
				found = true
			}
		}
	}
	if !found {
		if m := ymdNumericRe.FindStringSubmatch(segment); m != nil {
			if d, ok := buildDate(m[1], m[2], m[3]); ok {
				tb.Date = d
				found = true
			}
		}
	}
	if !found {
		if d, ok := matchMonthName(segment); ok {
			tb.Date = d
			found = true
		}
	}
	if !found {
		if m := relativeRe.FindStringSubmatch(segment); m != nil {
			tb.WhenText = strings.ToLower(m[1])
			found = true
		}
	}
	if !found {
		if m := nextWeekdayRe.FindStringSubmatch(segment); m != nil {
			tb.WhenText = "next " + strings.ToLower(m[1])
			found = true
		} else if m := bareWeekdayRe.FindStringSubmatch(segment); m != nil {
			tb.WhenText = "next " + strings.ToLower(m[1])
			found = true
		}
	}

	if t, ok := matchClockTime(segment); ok {
		tb.Time = t
		found = true
	}

	return tb, found
}

// matchMonthName tries the two month-name orderings ("March 5th, 2026" and
// "5th of March 2026"). A missing year is left for resolution time.
func matchMonthName(segment string) (string, bool) {
	if m := monthNameRe.FindStringSubmatch(segment); m != nil {
		return buildMonthDate(m[1], m[2], m[3])
	}
	if m := dayMonthRe.FindStringSubmatch(segment); m != nil {
		return buildMonthDate(m[2], m[1], m[3])
	}
	return "", false
}

func buildMonthDate(monthName, dayStr, yearStr string) (string, bool) {
	month, ok := monthsByPrefix[strings.ToLower(monthName)[:3]]
	if !ok {
		return "", false
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil || day < 1 || day > 31 {
		return "", false
	}
	year := 0
	if yearStr != "" {
		year, err = strconv.Atoi(yearStr)
		if err != nil || year < 1900 || year > 2100 {
			return "", false
		}
	}
	if year == 0 {
		// Year resolved later against the caller's clock; encode as 0000 so
		// ResolveDue can substitute the current (or next) year.
		return fmt.Sprintf("0000-%02d-%02d", int(month), day), true
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, int(month), day), true
}

// buildDate validates and formats explicit year/month/day strings.
func buildDate(yearStr, monthStr, dayStr string) (string, bool) {
	year, err1 := strconv.Atoi(yearStr)
	month, err2 := strconv.Atoi(monthStr)
	day, err3 := strconv.Atoi(dayStr)
	if err1 != nil || err2 != nil || err3 != nil {
		return "", false
	}
	if year < 1900 || year > 2100 || month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

// matchClockTime extracts an HH:mm (24h) clock time from segment.
func matchClockTime(segment string) (string, bool) {
	if m := clockTimeRe.FindStringSubmatch(segment); m != nil {
		hour, err := strconv.Atoi(m[1])
		if err != nil || hour < 1 || hour > 12 {
			return "", false
		}
		minute := 0
		if m[2] != "" {
			minute, err = strconv.Atoi(m[2])
			if err != nil || minute > 59 {
				return "", false
			}
		}
		if strings.EqualFold(m[3], "pm") && hour != 12 {
			hour += 12
		}
		if strings.EqualFold(m[3], "am") && hour == 12 {
			hour = 0
		}
		return fmt.Sprintf("%02d:%02d", hour, minute), true
	}
	if m := clock24TimeRe.FindStringSubmatch(segment); m != nil {
		hour, err1 := strconv.Atoi(m[1])
		minute, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil || hour > 23 || minute > 59 {
			return "", false
		}
		return fmt.Sprintf("%02d:%02d", hour, minute), true
	}
	return "", false
}

// ResolveDue converts a TimeBlock into a concrete ISO-8601 timestamp relative
// to now in the given location. Relative phrases resolve forward ("next
// friday" is always in the future); a time without a date resolves to now's
// date. Returns "" when tb carries nothing resolvable.
func ResolveDue(tb types.TimeBlock, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	day, ok := resolveDate(tb, now)
	if !ok {
		if tb.Time == "" {
			return ""
		}
		day = now
	}

	hour, minute := 0, 0
	if tb.Time != "" {
		fmt.Sscanf(tb.Time, "%d:%d", &hour, &minute)
	}

	resolved := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
	return resolved.Format(time.RFC3339)
}

// resolveDate resolves the date half of tb. ok is false when tb has no date
// information at all.
func resolveDate(tb types.TimeBlock, now time.Time) (time.Time, bool) {
	if tb.Date != "" {
		dateStr := tb.Date
		yearless := strings.HasPrefix(dateStr, "0000-")
		if yearless {
			// Yearless month-name form: substitute the current year, rolling
			// forward when the date has already passed.
			dateStr = fmt.Sprintf("%04d%s", now.Year(), dateStr[4:])
		}
		t, err := time.ParseInLocation("2006-01-02", dateStr, now.Location())
		if err != nil {
			return time.Time{}, false
		}
		if yearless && t.Before(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())) {
			t = t.AddDate(1, 0, 0)
		}
		return t, true
	}

	switch {
	case tb.WhenText == "today" || tb.WhenText == "tonight":
		return now, true
	case tb.WhenText == "tomorrow":
		return now.AddDate(0, 0, 1), true
	case tb.WhenText == "day after tomorrow":
		return now.AddDate(0, 0, 2), true
	case strings.HasPrefix(tb.WhenText, "next "):
		wd, ok := weekdays[strings.TrimPrefix(tb.WhenText, "next ")]
		if !ok {
			return time.Time{}, false
		}
		days := (int(wd) - int(now.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return now.AddDate(0, 0, days), true
	}
	return time.Time{}, false
}
