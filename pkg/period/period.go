// Package period provides calendar-quarter bucketing and ordering helpers
package period

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidPeriod is returned when a period label cannot be parsed
	ErrInvalidPeriod = errors.New("invalid period")
)

// Period is a calendar quarter identified by year and quarter number (1-4)
type Period struct {
	Year    int `json:"year"`
	Quarter int `json:"quarter"`
}

// QuarterOf maps a calendar date to the quarter containing it
func QuarterOf(t time.Time) Period {
	return Period{
		Year:    t.Year(),
		Quarter: (int(t.Month())-1)/3 + 1,
	}
}

// index returns a monotonically increasing ordinal for the period
func (p Period) index() int {
	return p.Year*4 + (p.Quarter - 1)
}

func fromIndex(i int) Period {
	year := i / 4
	q := i % 4
	if q < 0 {
		q += 4
		year--
	}
	return Period{Year: year, Quarter: q + 1}
}

// Add shifts the period by n quarters (n may be negative)
func (p Period) Add(n int) Period {
	return fromIndex(p.index() + n)
}

// Previous returns the quarter immediately before p; Q1 rolls over to Q4 of the prior year
func (p Period) Previous() Period {
	return p.Add(-1)
}

// Compare returns -1, 0 or 1 depending on whether p is before, equal to or after o
func (p Period) Compare(o Period) int {
	switch a, b := p.index(), o.index(); {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Before reports whether p is chronologically before o
func (p Period) Before(o Period) bool {
	return p.Compare(o) < 0
}

// IsZero reports whether p is the zero value
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Quarter == 0
}

// String renders the period as e.g. "2023Q4"
func (p Period) String() string {
	return fmt.Sprintf("%dQ%d", p.Year, p.Quarter)
}

// Label renders the period for display as e.g. "Q4/2023"
func (p Period) Label() string {
	return fmt.Sprintf("Q%d/%d", p.Quarter, p.Year)
}

// MarshalText implements encoding.TextMarshaler so periods serialise as "2023Q4"
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Parse accepts "2023Q4", "2023-Q4" and "Q4/2023"
func Parse(s string) (Period, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var yearPart, quarterPart string
	switch {
	case strings.HasPrefix(s, "Q") && strings.Contains(s, "/"):
		parts := strings.SplitN(s[1:], "/", 2)
		quarterPart, yearPart = parts[0], parts[1]
	case strings.Contains(s, "Q"):
		parts := strings.SplitN(s, "Q", 2)
		yearPart, quarterPart = strings.TrimSuffix(parts[0], "-"), parts[1]
	default:
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}

	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	quarter, err := strconv.Atoi(quarterPart)
	if err != nil || quarter < 1 || quarter > 4 {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}

	return Period{Year: year, Quarter: quarter}, nil
}

// Order returns the distinct periods sorted ascending by (year, quarter).
// The input slice is not modified.
func Order(periods []Period) []Period {
	seen := make(map[Period]struct{}, len(periods))
	out := make([]Period, 0, len(periods))
	for _, p := range periods {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Before(out[j])
	})

	return out
}

// LastN returns the n chronologically latest distinct periods present in the
// input, in ascending order. Gaps in the calendar are not filled.
func LastN(periods []Period, n int) []Period {
	ordered := Order(periods)
	if n <= 0 {
		return []Period{}
	}
	if len(ordered) <= n {
		return ordered
	}
	return ordered[len(ordered)-n:]
}

// Latest returns the most recent period, or false when periods is empty
func Latest(periods []Period) (Period, bool) {
	if len(periods) == 0 {
		return Period{}, false
	}

	latest := periods[0]
	for _, p := range periods[1:] {
		if latest.Before(p) {
			latest = p
		}
	}
	return latest, true
}

// Contains reports whether p is present in periods
func Contains(periods []Period, p Period) bool {
	for _, candidate := range periods {
		if candidate == p {
			return true
		}
	}
	return false
}
