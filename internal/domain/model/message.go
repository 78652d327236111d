package model

import "time"

// MessageSourceGmail tags messages ingested from the Gmail provider.
const MessageSourceGmail = "GMAIL"

// Message is one classified mailbox message. The logical identity of a
// message is the (AccountID, Sender, Subject, Timestamp) tuple -- the
// provider's own id is not trusted as sole identity because re-fetches may
// assign different synthetic ids across API generations.
type Message struct {
	ID        int64
	AccountID int64
	Sender    string
	Subject   string
	Body      string
	Priority  Priority
	Source    string
	// Confidence is an optional classifier score in [0.00, 1.00]; nil when
	// the classifier does not produce one.
	Confidence *float64
	// Timestamp is the message's own date, not the ingestion time.
	Timestamp time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
