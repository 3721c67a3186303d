package data

import (
	"fmt"
	"strings"
)

// Priority is the tier a user assigns to a band. The numeric values are the
// ones the festival app has always stored, so they are persisted as-is.
type Priority int

const (
	Unknown  Priority = 0
	MustSee  Priority = 1
	MightSee Priority = 2
	WontSee  Priority = 3
)

func (p Priority) String() string {
	switch p {
	case MustSee:
		return "must"
	case MightSee:
		return "might"
	case WontSee:
		return "wont"
	default:
		return "unknown"
	}
}

// ParsePriority accepts either the short names printed by String or the
// stored numbers.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "must", "mustsee", "must-see", "1":
		return MustSee, nil
	case "might", "mightsee", "might-see", "2":
		return MightSee, nil
	case "wont", "wontsee", "wont-see", "won't", "3":
		return WontSee, nil
	case "unknown", "none", "0", "":
		return Unknown, nil
	}
	return Unknown, fmt.Errorf("unknown priority '%s'", s)
}
