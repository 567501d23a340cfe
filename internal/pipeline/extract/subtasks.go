package extract

import (
	"regexp"
	"slices"
	"strings"
)

// subtaskLineRe matches bulleted ("-", "•", "*"), numbered ("1.", "2)") and
// lettered ("a)") list lines.
var subtaskLineRe = regexp.MustCompile(`^\s*(?:[-•*]|\d{1,2}[.)]|[a-z]\))\s+(.+)$`)

// IsSubtaskLine reports whether line is a structured list line.
func IsSubtaskLine(line string) bool {
	return subtaskLineRe.MatchString(line)
}

// Subtasks extracts structured list lines from text. Matched lines are
// trimmed, deduplicated, and lexically sorted so that equal inputs always
// yield identical output. Returns nil when text contains no list lines.
func Subtasks(text string) []string {
	var out []string
	seen := make(map[string]struct{})

	for _, line := range strings.Split(text, "\n") {
		m := subtaskLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		entry := strings.TrimSpace(m[1])
		if entry == "" {
			continue
		}
		if _, dup := seen[entry]; dup {
			continue
		}
		seen[entry] = struct{}{}
		out = append(out, entry)
	}

	slices.Sort(out)
	return out
}
