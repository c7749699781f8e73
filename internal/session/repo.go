package session

import (
	"context"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateSession(ctx context.Context, s *Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *Repo) GetBySessionID(ctx context.Context, sessionID string) (*Session, error) {
	var s Session
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSessions returns sessions newest-first with their message counts.
func (r *Repo) ListSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var sessions []Session
	if err := r.db.WithContext(ctx).
		Order("updated_at DESC").
		Limit(limit).
		Find(&sessions).Error; err != nil {
		return nil, err
	}

	out := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		var count int64
		if err := r.db.WithContext(ctx).Model(&Message{}).
			Where("session_id = ?", s.SessionID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		out = append(out, SessionSummary{
			SessionID:    s.SessionID,
			Name:         s.Name,
			CreatedAt:    s.CreatedAt,
			MessageCount: count,
		})
	}
	return out, nil
}

// DeleteSession removes a session and its messages.
func (r *Repo) DeleteSession(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("session_id = ?", sessionID).Delete(&Session{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("session_id = ?", sessionID).Delete(&Message{}).Error
	})
}

func (r *Repo) RenameSession(ctx context.Context, sessionID, name string) error {
	res := r.db.WithContext(ctx).Model(&Session{}).
		Where("session_id = ?", sessionID).
		Update("name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	// Bump the session so it sorts to the top of the list.
	return r.db.WithContext(ctx).Model(&Session{}).
		Where("session_id = ?", m.SessionID).
		Update("updated_at", m.CreatedAt).Error
}

// ListMessages returns a session's full history oldest-first.
func (r *Repo) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}
