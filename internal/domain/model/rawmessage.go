package model

import "strings"

// RawMessage is a provider-neutral view of a fetched mailbox message before
// extraction. Header names keep the provider's casing; lookups are
// case-insensitive. Part data stays in the provider's base64url wire encoding
// until extraction.
type RawMessage struct {
	ProviderID string
	Headers    []RawHeader
	Body       RawPart
}

// RawHeader is a single message header field.
type RawHeader struct {
	Name  string
	Value string
}

// RawPart is one node of the MIME part tree. Data holds the base64url-encoded
// payload as delivered by the provider; it may be empty for container parts.
type RawPart struct {
	MIMEType string
	Data     string
	Parts    []RawPart
}

// Header returns the value of the first header matching name
// case-insensitively, or "" when absent.
func (m *RawMessage) Header(name string) string {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
