package application

import (
	"encoding/base64"
	"net/mail"
	"strings"
	"time"

	"github.com/efisher/mailhub/internal/domain/model"
)

// extracted is the normalized content of one raw message, ready for
// classification and persistence.
type extracted struct {
	Sender    string
	Subject   string
	Body      string
	Timestamp time.Time
}

// extractMessage pulls sender, subject, body and timestamp out of a raw
// provider message. Header lookup is case-insensitive. The body comes from
// the first text/plain part, falling back to the top-level body when the
// message has no parts. An unparseable date never fails the item -- the
// processing time is substituted instead.
func extractMessage(raw *model.RawMessage, now time.Time) extracted {
	subject := raw.Header("Subject")
	if subject == "" {
		subject = "No Subject"
	}

	return extracted{
		Sender:    cleanSender(raw.Header("From")),
		Subject:   subject,
		Body:      extractBody(raw.Body),
		Timestamp: parseMessageDate(raw.Header("Date"), now),
	}
}

// extractBody picks the first text/plain part; when the payload has no parts
// at all, the top-level body data is used.
func extractBody(body model.RawPart) string {
	if len(body.Parts) == 0 {
		return strings.TrimSpace(decodeBody(body.Data))
	}

	for _, part := range body.Parts {
		if strings.EqualFold(part.MIMEType, "text/plain") && part.Data != "" {
			return strings.TrimSpace(decodeBody(part.Data))
		}
	}

	return ""
}

// decodeBody decodes the provider's base64url payload, tolerating both the
// padded and unpadded variants. Undecodable data yields an empty body rather
// than an item failure.
func decodeBody(data string) string {
	if data == "" {
		return ""
	}
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	if b, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	return ""
}

// cleanSender normalizes display strings of the form "Name <addr@host>" to
// the bare address.
func cleanSender(from string) string {
	if from == "" {
		return ""
	}

	if addr, err := mail.ParseAddress(from); err == nil {
		return addr.Address
	}

	// Malformed per RFC 5322 but the angle-bracket form is still extractable.
	if start := strings.IndexByte(from, '<'); start != -1 {
		if end := strings.IndexByte(from[start:], '>'); end != -1 {
			return from[start+1 : start+end]
		}
	}

	return from
}

// parseMessageDate parses an RFC 5322 date header, substituting now when the
// header is missing or unparseable.
func parseMessageDate(date string, now time.Time) time.Time {
	if date == "" {
		return now
	}

	if t, err := mail.ParseDate(date); err == nil {
		return t
	}

	return now
}
