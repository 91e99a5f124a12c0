package chat

import "time"

// Conversation captures a transient anonymous chat between one user and the
// remote assistant. Its state is discarded when the conversation ends.
type Conversation struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}
