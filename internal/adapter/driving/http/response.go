package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/efisher/mailhub/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// ConnectResponse carries the provider consent URL the user must visit.
type ConnectResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

// CallbackResponse reports the outcome of a completed authorization.
type CallbackResponse struct {
	Connected bool   `json:"connected"`
	ExpiresAt string `json:"expires_at"`
}

// MailboxStatusResponse reports whether the account holds a usable credential.
type MailboxStatusResponse struct {
	Connected bool `json:"connected"`
}

// MessageResponse is the JSON representation of a classified message.
type MessageResponse struct {
	ID         int64    `json:"id"`
	Sender     string   `json:"sender"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	Priority   string   `json:"priority"`
	Source     string   `json:"source"`
	Confidence *float64 `json:"confidence,omitempty"`
	Timestamp  string   `json:"timestamp"`
	CreatedAt  string   `json:"created_at"`
}

// StoredMessagesResponse is the stored-message listing with per-priority counts.
type StoredMessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
	Counts   map[string]int64  `json:"counts"`
}

// toMessageResponse converts a domain Message to its JSON representation.
func toMessageResponse(m model.Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		Sender:     m.Sender,
		Subject:    m.Subject,
		Body:       m.Body,
		Priority:   m.Priority.String(),
		Source:     m.Source,
		Confidence: m.Confidence,
		Timestamp:  m.Timestamp.UTC().Format(time.RFC3339),
		CreatedAt:  m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// toMessageResponses converts a slice, mapping nil to an empty JSON array.
func toMessageResponses(msgs []model.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	return out
}
