package mail

import "time"

// ReceivedAtLayout is the fixed timestamp format produced by the Outlook
// export (German locale, e.g. "24.03.2025 09:15:42").
const ReceivedAtLayout = "02.01.2006 15:04:05"

// RawEmail is one inbound message as delivered by the Outlook-export
// importer. Records are immutable once ingested; the reconciliation core
// never mutates them.
type RawEmail struct {
	// EntryID is the unique message identifier from the export.
	EntryID string `json:"entryId"`

	// ConversationID groups messages belonging to the same thread.
	// Optional; empty when the export carries no thread information.
	ConversationID string `json:"conversationId,omitempty"`

	// Subject is the message subject line.
	Subject string `json:"subject"`

	// Body is the plain-text message body.
	Body string `json:"body"`

	// From is the sender address.
	From string `json:"from"`

	// To is the recipient address.
	To string `json:"to"`

	// ReceivedAt is the locale-formatted receipt timestamp
	// (ReceivedAtLayout). Kept as a string because the export writes it
	// that way; use ParseReceivedAt to interpret it.
	ReceivedAt string `json:"receivedAt"`
}

// Text returns the combined text the extraction engine scans:
// subject and body joined by a newline.
func (e RawEmail) Text() string {
	return e.Subject + "\n" + e.Body
}

// ParseReceivedAt parses the export's receipt timestamp. Callers decide
// the fallback for unparseable values (the matcher falls back to now).
func ParseReceivedAt(s string) (time.Time, error) {
	return time.Parse(ReceivedAtLayout, s)
}
