package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/ava-relay/backend/internal/model/chat"
	"github.com/zhouzirui/ava-relay/backend/internal/service/relay"
	"github.com/zhouzirui/ava-relay/backend/internal/service/session"
)

var ErrConversationNotFound = errors.New("conversation not found")

// Service tracks open conversations and their transcripts.
type Service struct {
	mu            sync.RWMutex
	conversations map[string]chat.Conversation
	messages      map[string][]chat.Message
	lastActive    map[string]time.Time
	state         session.Store
}

// NewService creates a service whose per-conversation state lives in state.
func NewService(state session.Store) *Service {
	return &Service{
		conversations: make(map[string]chat.Conversation),
		messages:      make(map[string][]chat.Message),
		lastActive:    make(map[string]time.Time),
		state:         state,
	}
}

// Open starts a new anonymous conversation.
func (s *Service) Open(_ context.Context) chat.Conversation {
	conv := chat.Conversation{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.conversations[conv.ID] = conv
	s.messages[conv.ID] = make([]chat.Message, 0, 16)
	s.lastActive[conv.ID] = conv.CreatedAt
	s.mu.Unlock()

	log.Info().Str("conversation_id", conv.ID).Msg("conversation opened")
	return conv
}

// Get retrieves a conversation by identifier.
func (s *Service) Get(_ context.Context, id string) (chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return chat.Conversation{}, ErrConversationNotFound
	}
	return conv, nil
}

// Record appends a message to the conversation transcript.
func (s *Service) Record(_ context.Context, message chat.Message) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[message.ConversationID]; !ok {
		return chat.Message{}, ErrConversationNotFound
	}

	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.Kind == "" {
		message.Kind = chat.KindMessage
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	s.messages[message.ConversationID] = append(s.messages[message.ConversationID], message)
	s.lastActive[message.ConversationID] = time.Now().UTC()
	return message, nil
}

// Transcript returns the recorded messages of a conversation.
func (s *Service) Transcript(_ context.Context, id string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[id]
	if !ok {
		return nil, ErrConversationNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

// End discards the transcript and session state of a conversation.
func (s *Service) End(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.conversations[id]; !ok {
		s.mu.Unlock()
		return ErrConversationNotFound
	}
	delete(s.conversations, id)
	delete(s.messages, id)
	delete(s.lastActive, id)
	s.mu.Unlock()

	if err := s.state.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Str("conversation_id", id).Msg("conversation ended")
	return nil
}

// ExpireIdle ends every conversation without activity for longer than
// maxIdle and returns the ended identifiers.
func (s *Service) ExpireIdle(ctx context.Context, maxIdle time.Duration) []string {
	cutoff := time.Now().UTC().Add(-maxIdle)

	s.mu.RLock()
	idle := make([]string, 0)
	for id, last := range s.lastActive {
		if last.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	s.mu.RUnlock()

	ended := make([]string, 0, len(idle))
	for _, id := range idle {
		if err := s.End(ctx, id); err != nil {
			if !errors.Is(err, ErrConversationNotFound) {
				log.Warn().Err(err).Str("conversation_id", id).Msg("failed to expire conversation")
			}
			continue
		}
		ended = append(ended, id)
	}
	return ended
}

// RunJanitor expires idle conversations every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ended := s.ExpireIdle(ctx, maxIdle); len(ended) > 0 {
				log.Info().Int("count", len(ended)).Msg("expired idle conversations")
			}
		}
	}
}

// State returns the session state of a conversation for the relay.
func (s *Service) State(id string) relay.SessionState {
	return session.Scope(s.state, id)
}

// Sink returns a relay sink that hands messages to emit for delivery and
// records them in the transcript once delivered.
func (s *Service) Sink(id string, emit func(chat.Message) error) relay.Sink {
	return &recordingSink{svc: s, conversationID: id, emit: emit}
}

type recordingSink struct {
	svc            *Service
	conversationID string
	emit           func(chat.Message) error
}

func (r *recordingSink) Send(ctx context.Context, content string) error {
	return r.deliver(ctx, chat.KindMessage, content)
}

func (r *recordingSink) SendError(ctx context.Context, content string) error {
	return r.deliver(ctx, chat.KindError, content)
}

func (r *recordingSink) deliver(ctx context.Context, kind, content string) error {
	if _, err := r.svc.Get(ctx, r.conversationID); err != nil {
		return err
	}

	msg := chat.Message{
		ID:             uuid.NewString(),
		ConversationID: r.conversationID,
		Author:         chat.AuthorAssistant,
		Kind:           kind,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	if r.emit != nil {
		if err := r.emit(msg); err != nil {
			return err
		}
	}

	_, err := r.svc.Record(ctx, msg)
	return err
}
