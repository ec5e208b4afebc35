package graph

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-day format stamped on Articles and used by
// the hype query.
const DateLayout = "2006-01-02"

// Bounds of a well-formed risk score. Scores outside are stored as given.
const (
	MinRisk = 1
	MaxRisk = 10
)

// Day returns the calendar day of t in its own location.
func Day(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseScore coerces a raw score to an integer. The boolean reports whether
// the value lies within [MinRisk, MaxRisk].
func ParseScore(raw string) (risk int, inRange bool, err error) {
	risk, err = strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false, err
	}
	return risk, risk >= MinRisk && risk <= MaxRisk, nil
}
