package scenario

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/acodispatch/core/model"
)

// Minute is a simulated minute. In YAML it is either a plain integer or a
// duration such as "01d00h24m", "4h" or "90m".
type Minute int

// ParseMinute converts a "<d>d<h>h<m>m" stamp into minutes. Every part is
// optional but at least one must be present.
func ParseMinute(s string) (Minute, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty time stamp")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return Minute(n), nil
	}
	total, digits, seen := 0, "", false
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits += string(r)
			continue
		}
		if digits == "" {
			return 0, fmt.Errorf("time stamp %q: unit %q without value", s, r)
		}
		n, _ := strconv.Atoi(digits)
		switch r {
		case 'd':
			total += n * model.MinutesPerDay
		case 'h':
			total += n * 60
		case 'm':
			total += n
		default:
			return 0, fmt.Errorf("time stamp %q: unknown unit %q", s, r)
		}
		digits, seen = "", true
	}
	if digits != "" || !seen {
		return 0, fmt.Errorf("time stamp %q: missing unit", s)
	}
	return Minute(total), nil
}

// UnmarshalYAML accepts integers and duration stamps.
func (m *Minute) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: time must be a scalar", value.Line)
	}
	v, err := ParseMinute(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*m = v
	return nil
}

// String formats the minute as a "ddDhhHmmM" stamp.
func (m Minute) String() string {
	v := int(m)
	return fmt.Sprintf("%02dd%02dh%02dm", v/model.MinutesPerDay, v%model.MinutesPerDay/60, v%60)
}
