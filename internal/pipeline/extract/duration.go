package extract

import (
	"math"
	"regexp"
	"strconv"
)

// Duration pattern priority: combined "<h>h<m>m" beats hours-only, hours beat
// minutes, minutes beat seconds. Seconds are rounded up to a minimum of one
// minute so that any matched duration is representable.
var (
	combinedRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s*h(?:ours?)?\s*(\d{1,2})\s*m(?:in(?:ute)?s?)?\b`)
	hoursRe    = regexp.MustCompile(`(?i)\b(\d{1,2}(?:\.\d+)?)\s*h(?:ours?|rs?)?\b`)
	minutesRe  = regexp.MustCompile(`(?i)\b(\d{1,3})\s*m(?:in(?:ute)?s?)?\b`)
	secondsRe  = regexp.MustCompile(`(?i)\b(\d{1,4})\s*s(?:ec(?:ond)?s?)?\b`)
)

// Duration extracts a duration in whole minutes from segment. The second
// return value is false when no duration phrase is present. Matches are never
// zero: sub-minute values round up to one minute.
func Duration(segment string) (int, bool) {
	if m := combinedRe.FindStringSubmatch(segment); m != nil {
		hours, err1 := strconv.Atoi(m[1])
		mins, err2 := strconv.Atoi(m[2])
		if err1 == nil && err2 == nil {
			return hours*60 + mins, true
		}
	}
	if m := hoursRe.FindStringSubmatch(segment); m != nil {
		hours, err := strconv.ParseFloat(m[1], 64)
		if err == nil && hours > 0 {
			return int(math.Round(hours * 60)), true
		}
	}
	if m := minutesRe.FindStringSubmatch(segment); m != nil {
		mins, err := strconv.Atoi(m[1])
		if err == nil && mins > 0 {
			return mins, true
		}
	}
	if m := secondsRe.FindStringSubmatch(segment); m != nil {
		secs, err := strconv.Atoi(m[1])
		if err == nil && secs > 0 {
			mins := secs / 60
			if mins < 1 {
				mins = 1
			}
			return mins, true
		}
	}
	return 0, false
}
