package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationRegex = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseDuration converts an ISO-8601 duration token ("PT3M45S") to whole
// seconds. Anything it cannot read is 0 seconds.
func ParseDuration(token string) int {
	m := durationRegex.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(token)))
	if m == nil {
		return 0
	}

	total := 0
	for i, mult := range []int{86400, 3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0
		}
		total += n * mult
	}
	return total
}

// FormatDuration renders d as a token ParseDuration understands.
func FormatDuration(d time.Duration) string {
	secs := int(d / time.Second)
	h, m, s := secs/3600, (secs%3600)/60, secs%60
	if h > 0 {
		return fmt.Sprintf("PT%dH%dM%dS", h, m, s)
	}
	return fmt.Sprintf("PT%dM%dS", m, s)
}
