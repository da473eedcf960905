package mail

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Export is a parsed Outlook export: the flat email list plus a thread
// index keyed by conversation id. Emails without a conversation id appear
// only in Emails.
type Export struct {
	// Emails holds every message in export order.
	Emails []RawEmail

	// Threads groups messages by conversation id, preserving export order
	// within each thread.
	Threads map[string][]RawEmail
}

// exportDocument covers both shapes the importer produces: grouped by
// thread or as a flat list.
type exportDocument struct {
	Conversations map[string]conversationGroup `json:"conversations,omitempty"`
	Emails        []RawEmail                   `json:"emails,omitempty"`
}

type conversationGroup struct {
	Messages []RawEmail `json:"messages"`
}

// ParseExport decodes an Outlook export JSON document. It accepts either
// the conversation-grouped shape ({"conversations": {id: {"messages":
// [...]}}}) or the flat shape ({"emails": [...]}). Character-encoding
// repair is the importer's job; the bytes here are taken as-is.
func ParseExport(data []byte) (*Export, error) {
	var doc exportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode outlook export: %w", err)
	}

	export := &Export{
		Threads: make(map[string][]RawEmail),
	}

	if len(doc.Conversations) > 0 {
		// Sort thread ids so batch processing order is deterministic;
		// JSON object order is not preserved by encoding/json.
		threadIDs := make([]string, 0, len(doc.Conversations))
		for threadID := range doc.Conversations {
			threadIDs = append(threadIDs, threadID)
		}
		sort.Strings(threadIDs)

		for _, threadID := range threadIDs {
			for _, msg := range doc.Conversations[threadID].Messages {
				if msg.ConversationID == "" {
					msg.ConversationID = threadID
				}
				export.Emails = append(export.Emails, msg)
				export.Threads[msg.ConversationID] = append(export.Threads[msg.ConversationID], msg)
			}
		}
		return export, nil
	}

	for _, msg := range doc.Emails {
		export.Emails = append(export.Emails, msg)
		if msg.ConversationID != "" {
			export.Threads[msg.ConversationID] = append(export.Threads[msg.ConversationID], msg)
		}
	}

	if export.Emails == nil {
		return nil, fmt.Errorf("outlook export contains neither conversations nor emails")
	}

	return export, nil
}

// ThreadOf returns the full thread for an email, falling back to a
// single-message thread when the email carries no conversation id or the
// thread is unknown.
func (x *Export) ThreadOf(email RawEmail) []RawEmail {
	if email.ConversationID != "" {
		if thread, ok := x.Threads[email.ConversationID]; ok {
			return thread
		}
	}
	return []RawEmail{email}
}
