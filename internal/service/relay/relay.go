package relay

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/ava-relay/backend/internal/service/remote"
)

// SessionKey is the per-conversation state key holding the session identifier.
const SessionKey = "id"

// SessionState is the per-conversation key/value store supplied by the chat UI.
type SessionState interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Sink receives the messages emitted for one user turn.
type Sink interface {
	Send(ctx context.Context, content string) error
	SendError(ctx context.Context, content string) error
}

// Sender forwards one message to the remote chat API.
type Sender interface {
	Send(ctx context.Context, message, sessionID string) (*remote.Reply, error)
}

// Relay forwards user messages to the chat API and renders the replies.
type Relay struct {
	sender Sender
	newID  func() string
}

// New creates a relay around sender.
func New(sender Sender) *Relay {
	return &Relay{sender: sender, newID: uuid.NewString}
}

// OnMessage handles one user turn. It emits either the reply text or a single
// error message on sink; failures never propagate to the caller.
func (r *Relay) OnMessage(ctx context.Context, state SessionState, sink Sink, text string) {
	if err := r.handle(ctx, state, sink, text); err != nil {
		content := "Error: " + err.Error()
		log.Warn().Err(err).Str("component", "relay").Msg("relay failed")
		if sendErr := sink.SendError(ctx, content); sendErr != nil {
			log.Error().Err(sendErr).Str("component", "relay").Msg("failed to emit error message")
		}
	}
}

func (r *Relay) handle(ctx context.Context, state SessionState, sink Sink, text string) error {
	sessionID, err := r.SessionID(ctx, state)
	if err != nil {
		return err
	}

	reply, err := r.sender.Send(ctx, text, sessionID)
	if err != nil {
		return err
	}

	return sink.Send(ctx, reply.Text())
}

// SessionID returns the conversation's session identifier, creating and
// storing one on first use.
func (r *Relay) SessionID(ctx context.Context, state SessionState) (string, error) {
	id, ok, err := state.Get(ctx, SessionKey)
	if err != nil {
		return "", errors.Wrap(err, "load session id")
	}
	if ok && id != "" {
		return id, nil
	}

	id = r.newID()
	if err := state.Set(ctx, SessionKey, id); err != nil {
		return "", errors.Wrap(err, "store session id")
	}
	log.Debug().Str("component", "relay").Str("session_id", id).Msg("created session")
	return id, nil
}
