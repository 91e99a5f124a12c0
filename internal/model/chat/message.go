package chat

import "time"

// Authors of transcript entries.
const (
	AuthorUser      = "user"
	AuthorAssistant = "assistant"
)

// Message kinds. Errors are rendered with error styling by the chat UI.
const (
	KindMessage = "message"
	KindError   = "error"
)

// Message is a single turn shown to the user.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Author         string    `json:"author"`
	Kind           string    `json:"kind"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}
