package session

import (
	"context"

	"streamchat/internal/common"
)

const defaultSessionName = "New Session"

type Service struct {
	repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateSession(ctx context.Context, name string) (*Session, error) {
	if name == "" {
		name = defaultSessionName
	}

	sid, err := common.NewULID()
	if err != nil {
		return nil, err
	}

	sess := &Session{
		SessionID: sid,
		Name:      name,
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	return s.repo.GetBySessionID(ctx, sessionID)
}

func (s *Service) ListSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	return s.repo.ListSessions(ctx, limit)
}

func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	return s.repo.DeleteSession(ctx, sessionID)
}

func (s *Service) RenameSession(ctx context.Context, sessionID, name string) (*Session, error) {
	if err := s.repo.RenameSession(ctx, sessionID, name); err != nil {
		return nil, err
	}
	return s.repo.GetBySessionID(ctx, sessionID)
}

// DuplicateSession copies a session and its full history under a new id.
func (s *Service) DuplicateSession(ctx context.Context, sessionID string) (*Session, error) {
	orig, err := s.repo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	copySess, err := s.CreateSession(ctx, orig.Name+" (Copy)")
	if err != nil {
		return nil, err
	}

	msgs, err := s.repo.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		if err := s.repo.InsertMessage(ctx, &Message{
			SessionID: copySess.SessionID,
			Role:      m.Role,
			Content:   m.Content,
			ModelUsed: m.ModelUsed,
		}); err != nil {
			return nil, err
		}
	}
	return copySess, nil
}

func (s *Service) AddMessage(ctx context.Context, sessionID, role, content string, modelUsed *string) (*Message, error) {
	if _, err := s.repo.GetBySessionID(ctx, sessionID); err != nil {
		return nil, err
	}
	m := &Message{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		ModelUsed: modelUsed,
	}
	if err := s.repo.InsertMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	if _, err := s.repo.GetBySessionID(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, sessionID)
}
