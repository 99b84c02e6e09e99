package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var agePattern = regexp.MustCompile(`^(?:(\d+(?:\.\d+)?)d)?(?:(\d+(?:\.\d+)?)h)?(?:(\d+(?:\.\d+)?)m)?(?:(\d+(?:\.\d+)?)s)?$`)

// ParseAge converts an age such as "18h ago", "45m ago" or "(2h15m ago)"
// into fractional hours. Units must appear in d, h, m, s order.
func ParseAge(age string) (float64, error) {
	s := strings.NewReplacer("(", "", ")", "").Replace(age)
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(s, "ago"))
	s = strings.ReplaceAll(s, " ", "")

	m := agePattern.FindStringSubmatch(s)
	if s == "" || m == nil {
		return 0, fmt.Errorf("invalid age %q", age)
	}

	hours := 0.0
	for i, perHour := range []float64{1.0 / 24, 1, 60, 3600} {
		if m[i+1] == "" {
			continue
		}
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid age %q: %w", age, err)
		}
		hours += v / perHour
	}
	return hours, nil
}
