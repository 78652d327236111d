// Package application contains use-case orchestration services.
package application

import (
	"strings"

	"github.com/efisher/mailhub/internal/domain/model"
)

// Keyword sets checked in strict precedence order. The HIGH set is tested
// first and a match short-circuits, so a subject carrying both "interview"
// and "newsletter" still classifies HIGH.
var (
	highKeywords = []string{
		"interview", "offer", "urgent", "deadline", "exam",
		"emergency", "important", "asap", "critical",
	}
	mediumKeywords = []string{
		"meeting", "reminder", "schedule", "appointment",
		"update", "notification", "alert",
	}
	lowKeywords = []string{
		"sale", "discount", "promotion", "newsletter",
		"unsubscribe", "marketing",
	}
)

// Classify maps a message to a priority tier by ordered keyword containment
// over the lowercased subject+body. No match at all defaults to MEDIUM:
// an unrecognized message is worth a look, not a burial.
//
// The sender is accepted for future sender-based rules but does not currently
// influence the decision.
func Classify(subject, body, sender string) model.Priority {
	content := strings.ToLower(subject + " " + body)

	for _, kw := range highKeywords {
		if strings.Contains(content, kw) {
			return model.PriorityHigh
		}
	}
	for _, kw := range mediumKeywords {
		if strings.Contains(content, kw) {
			return model.PriorityMedium
		}
	}
	for _, kw := range lowKeywords {
		if strings.Contains(content, kw) {
			return model.PriorityLow
		}
	}

	return model.PriorityMedium
}
