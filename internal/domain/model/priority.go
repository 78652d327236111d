package model

import (
	"fmt"
	"strings"
)

// Priority is the classification tier assigned to an ingested message.
// Tiers are ordered: PriorityLow < PriorityMedium < PriorityHigh, so
// priorities compare directly with < and >.
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

// String returns the canonical storage representation ("LOW", "MEDIUM", "HIGH").
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("PRIORITY(%d)", int(p))
	}
}

// IsValid reports whether p is one of the three defined tiers.
func (p Priority) IsValid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

// ParsePriority converts a stored string back to a Priority (case-insensitive).
func ParsePriority(s string) (Priority, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return PriorityLow, nil
	case "MEDIUM":
		return PriorityMedium, nil
	case "HIGH":
		return PriorityHigh, nil
	default:
		return 0, fmt.Errorf("invalid priority %q", s)
	}
}
