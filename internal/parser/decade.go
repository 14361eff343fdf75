package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	decadeRangeRegex = regexp.MustCompile(`^(\d{4})\s*[-–—]\s*(\d{4}|present|now)$`)
	decadeShortRegex = regexp.MustCompile(`^(\d{3})0'?s$`)
)

// ParseDecade reads the game's decade labels: "1990–2000", "2020–Present",
// "1990-2000" or "1990s". Ranges are inclusive on both ends.
func ParseDecade(label string, now time.Time) (start, end int, ok bool) {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return 0, 0, false
	}

	if m := decadeRangeRegex.FindStringSubmatch(l); m != nil {
		start, _ = strconv.Atoi(m[1])
		if m[2] == "present" || m[2] == "now" {
			return start, now.Year(), true
		}
		end, _ = strconv.Atoi(m[2])
		if end < start {
			start, end = end, start
		}
		return start, end, true
	}

	if m := decadeShortRegex.FindStringSubmatch(l); m != nil {
		d, _ := strconv.Atoi(m[1])
		return d * 10, d*10 + 9, true
	}

	return 0, 0, false
}

// DecadeStart rounds a year down to its decade.
func DecadeStart(year int) int {
	return year - year%10
}
