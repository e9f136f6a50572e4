package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/zhouzirui/science-tutor/backend/internal/model/chat"
	"github.com/zhouzirui/science-tutor/backend/internal/service/completion"
)

var ErrSessionNotFound = errors.New("session not found")

// Service keeps the live conversations of every connected user. Each
// conversation owns its transcript; the service only maps ids to them.
type Service struct {
	client completion.Client

	mu       sync.RWMutex
	sessions map[string]*Conversation
}

// NewService creates an in-memory registry whose conversations use client.
func NewService(client completion.Client) *Service {
	return &Service{
		client:   client,
		sessions: make(map[string]*Conversation),
	}
}

// CreateSession starts a new, empty conversation.
func (s *Service) CreateSession(_ context.Context) (chat.Session, error) {
	conv := NewConversation(uuid.NewString(), s.client)

	s.mu.Lock()
	s.sessions[conv.ID()] = conv
	s.mu.Unlock()

	return conv.Snapshot(), nil
}

// GetSession returns the current view of a session.
func (s *Service) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	conv, err := s.conversation(sessionID)
	if err != nil {
		return chat.Session{}, err
	}
	return conv.Snapshot(), nil
}

// Submit runs one exchange on the given session.
func (s *Service) Submit(ctx context.Context, sessionID, text string) (Exchange, error) {
	conv, err := s.conversation(sessionID)
	if err != nil {
		return Exchange{}, err
	}
	return conv.Submit(ctx, text)
}

// LoadTranscript returns the ordered turns of a session.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Turn, error) {
	conv, err := s.conversation(sessionID)
	if err != nil {
		return nil, err
	}
	return conv.Transcript(), nil
}

// EndSession discards a session and its transcript.
func (s *Service) EndSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

// Count returns the number of live sessions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Service) conversation(sessionID string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return conv, nil
}
