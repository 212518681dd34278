package service

import (
	"context"
	"strings"
	"time"

	"realtime_chat/internal/models"
	"realtime_chat/internal/repository"
)

// HistorySize is the number of messages replayed to a freshly connected client.
const HistorySize = repository.MaxHistory

type ChatService struct {
	messages repository.MessageRepo
	users    repository.Authorization
	now      func() time.Time
}

func NewChatService(messages repository.MessageRepo, users repository.Authorization) *ChatService {
	return &ChatService{messages: messages, users: users, now: time.Now}
}

// History loads the newest messages from the store (newest first) and
// returns them in chronological order.
func (s *ChatService) History(ctx context.Context, before time.Time, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > HistorySize {
		limit = HistorySize
	}
	recent, err := s.messages.Recent(ctx, normalizeToUTC(before), limit)
	if err != nil {
		return nil, persistence("load history", err)
	}
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}
	return recent, nil
}

// Post resolves the author's display name, persists the message and returns
// it fully resolved, ready for broadcast.
func (s *ChatService) Post(ctx context.Context, from models.Identity, text string) (models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return models.Message{}, ErrEmptyMessage
	}

	name, err := s.displayName(ctx, from)
	if err != nil {
		return models.Message{}, err
	}

	msg := models.Message{
		UserID:    from.UserID,
		Text:      text,
		Timestamp: s.now().UTC(),
	}
	if from.IsGuest {
		msg.Username = name
	}

	saved, err := s.messages.Append(ctx, msg)
	if err != nil {
		return models.Message{}, persistence("save message", err)
	}
	saved.Username = name
	return saved, nil
}

func (s *ChatService) displayName(ctx context.Context, from models.Identity) (string, error) {
	if from.IsGuest {
		if strings.TrimSpace(from.Username) == "" {
			return "", ErrUnknownAuthor
		}
		return from.Username, nil
	}
	u, err := s.users.GetByID(ctx, from.UserID)
	if err != nil {
		return "", persistence("lookup author", err)
	}
	if u == nil {
		return "", ErrUnknownAuthor
	}
	return u.Username, nil
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
