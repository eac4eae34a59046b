package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/parley-chat/session-service/internal/domain"
)

// RoomQuery narrows FindByRoom. A nil Pinned matches everything.
type RoomQuery struct {
	Pinned    *bool
	Ascending bool // created_at order; false = newest first
	Limit     int  // <= 0 means no limit
}

// MessageStore is the durable collaborator behind the lifecycle manager.
// It is the sole arbiter of final message state. Every mutating operation
// is a single atomic per-field write: concurrent callers touching the same
// message interleave without losing each other's changes, and seen_by only
// ever grows.
type MessageStore interface {
	Create(ctx context.Context, m *domain.Message) (*domain.Message, error)
	FindByID(ctx context.Context, id string) (*domain.Message, error)
	FindByRoom(ctx context.Context, room string, q RoomQuery) ([]domain.Message, error)
	// UpdateContent swaps the content and pushes the previous content onto
	// the edit history in the same write; the author guard is part of the
	// statement.
	UpdateContent(ctx context.Context, id, author, newContent string) (*domain.Message, error)
	TogglePin(ctx context.Context, id string) (*domain.Message, error)
	AddReaction(ctx context.Context, id, emoji, username string) (*domain.Message, error)
	RemoveReaction(ctx context.Context, id, emoji, username string) (*domain.Message, error)
	// MarkSeen records viewer on every message in the room authored by
	// someone else that does not already carry it; returns changed ids.
	MarkSeen(ctx context.Context, room, viewer string) ([]string, error)
	Delete(ctx context.Context, id string) error
	TextSearch(ctx context.Context, room, query string, limit int) ([]domain.Message, error)
}

// OnlineLister is the slice of the presence registry the message service
// needs to capture delivery snapshots.
type OnlineLister interface {
	Online(room string) []string
}

type MessageService struct {
	store    MessageStore
	presence OnlineLister

	maxContentLen int
	historyLimit  int
	searchLimit   int
}

func NewMessageService(store MessageStore, presence OnlineLister) *MessageService {
	return &MessageService{
		store:         store,
		presence:      presence,
		maxContentLen: 4000,
		historyLimit:  50,
		searchLimit:   20,
	}
}

func (s *MessageService) SetLimits(maxContentLen, historyLimit, searchLimit int) {
	if maxContentLen > 0 {
		s.maxContentLen = maxContentLen
	}
	if historyLimit > 0 {
		s.historyLimit = historyLimit
	}
	if searchLimit > 0 {
		s.searchLimit = searchLimit
	}
}

// Create persists a new message. DeliveredTo is the set of online users in
// the room minus the author, captured at this instant and fixed thereafter.
func (s *MessageService) Create(ctx context.Context, room, author, content string, replyTo *string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.ErrEmptyMessage
	}
	if len(content) > s.maxContentLen {
		return nil, domain.ErrMessageTooLong
	}

	deliveredTo := make([]string, 0)
	for _, u := range s.presence.Online(room) {
		if u != author {
			deliveredTo = append(deliveredTo, u)
		}
	}

	m := &domain.Message{
		Room:        room,
		Username:    author,
		Content:     content,
		SeenBy:      []string{},
		DeliveredTo: deliveredTo,
		ReplyTo:     replyTo,
		Reactions:   domain.Reactions{},
	}

	created, err := s.store.Create(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("store.Create: %w", err)
	}
	return created, nil
}

// Edit replaces the content of a message. Only the author may edit; the
// store snapshots the previous content onto the edit history in the same
// write that swaps it.
func (s *MessageService) Edit(ctx context.Context, id, editor, newContent string) (*domain.Message, error) {
	newContent = strings.TrimSpace(newContent)
	if newContent == "" {
		return nil, domain.ErrEmptyMessage
	}

	m, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Username != editor {
		return nil, domain.ErrNotAuthorized
	}

	updated, err := s.store.UpdateContent(ctx, id, editor, newContent)
	if err != nil {
		return nil, fmt.Errorf("store.UpdateContent: %w", err)
	}
	return updated, nil
}

// Delete permanently removes a message. Only the author may delete.
func (s *MessageService) Delete(ctx context.Context, id, requester string) error {
	m, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if m.Username != requester {
		return domain.ErrNotAuthorized
	}
	return s.store.Delete(ctx, id)
}

// TogglePin flips the pinned flag. Any room member may pin or unpin; the
// flip is atomic at the store, so two racing toggles land as two flips.
func (s *MessageService) TogglePin(ctx context.Context, id string) (*domain.Message, error) {
	return s.store.TogglePin(ctx, id)
}

// AddReaction records username under emoji. Idempotent.
func (s *MessageService) AddReaction(ctx context.Context, id, emoji, username string) (*domain.Message, error) {
	return s.store.AddReaction(ctx, id, emoji, username)
}

// RemoveReaction drops username under emoji. Idempotent.
func (s *MessageService) RemoveReaction(ctx context.Context, id, emoji, username string) (*domain.Message, error) {
	return s.store.RemoveReaction(ctx, id, emoji, username)
}

// MarkSeen records viewer in seenBy for every message in the room authored
// by someone else that does not already carry it. The whole sweep is one
// atomic store write; seenBy is a monotonic union and never shrinks except
// with deletion of the whole message. Returns the ids of the messages that
// changed.
func (s *MessageService) MarkSeen(ctx context.Context, room, viewer string) ([]string, error) {
	ids, err := s.store.MarkSeen(ctx, room, viewer)
	if err != nil {
		return nil, fmt.Errorf("store.MarkSeen: %w", err)
	}
	return ids, nil
}

// History returns the room's messages for a newly joined connection:
// pinned messages newest first, concatenated before the most recent
// unpinned messages in chronological ascending order. Pinned content stays
// at the top regardless of recency.
func (s *MessageService) History(ctx context.Context, room string) ([]domain.Message, error) {
	pinned := true
	unpinned := false

	pinnedMsgs, err := s.store.FindByRoom(ctx, room, RoomQuery{Pinned: &pinned, Ascending: false})
	if err != nil {
		return nil, fmt.Errorf("store.FindByRoom pinned: %w", err)
	}

	recent, err := s.store.FindByRoom(ctx, room, RoomQuery{Pinned: &unpinned, Ascending: false, Limit: s.historyLimit})
	if err != nil {
		return nil, fmt.Errorf("store.FindByRoom recent: %w", err)
	}
	// newest-first fetch picks the most recent window; present it ascending
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}

	return append(pinnedMsgs, recent...), nil
}

// Search returns up to the configured number of messages ranked by
// relevance. A store failure degrades to an empty result, never an error.
func (s *MessageService) Search(ctx context.Context, room, query string) []domain.Message {
	msgs, err := s.store.TextSearch(ctx, room, query, s.searchLimit)
	if err != nil {
		slog.Warn("message search failed", "room", room, "err", err)
		return []domain.Message{}
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs
}
