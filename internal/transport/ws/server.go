package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/parley-chat/session-service/internal/activity"
	"github.com/parley-chat/session-service/internal/domain"
	"github.com/parley-chat/session-service/internal/presence"
	"github.com/parley-chat/session-service/internal/security"
	"github.com/parley-chat/session-service/internal/typing"

	"github.com/gorilla/websocket"
)

// MessageSvc is the slice of the message lifecycle manager the coordinator
// drives. Every operation persists before anything is broadcast.
type MessageSvc interface {
	Create(ctx context.Context, room, author, content string, replyTo *string) (*domain.Message, error)
	Edit(ctx context.Context, id, editor, newContent string) (*domain.Message, error)
	Delete(ctx context.Context, id, requester string) error
	TogglePin(ctx context.Context, id string) (*domain.Message, error)
	AddReaction(ctx context.Context, id, emoji, username string) (*domain.Message, error)
	RemoveReaction(ctx context.Context, id, emoji, username string) (*domain.Message, error)
	MarkSeen(ctx context.Context, room, viewer string) ([]string, error)
	History(ctx context.Context, room string) ([]domain.Message, error)
	Search(ctx context.Context, room, query string) []domain.Message
}

// Server coordinates the sessions bound to each WebSocket connection: it
// validates inbound events against the connection's (username, room)
// binding, delegates to presence/typing/messages, and drives the hub.
type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	presence *presence.Registry
	typing   *typing.Tracker
	messages MessageSvc
	activity *activity.Log
	signer   *security.TokenSigner // nil disables WS auth

	pingEvery time.Duration
}

func NewServer(hub *Hub, reg *presence.Registry, tracker *typing.Tracker, messages MessageSvc, log *activity.Log, signer *security.TokenSigner) *Server {
	return &Server{
		hub:      hub,
		presence: reg,
		typing:   tracker,
		messages: messages,
		activity: log,
		signer:   signer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

// WS endpoint: GET /ws?access_token=...
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	if s.signer != nil {
		token := strings.TrimSpace(r.URL.Query().Get("access_token"))
		if token == "" {
			http.Error(w, "missing access_token", http.StatusUnauthorized)
			return
		}
		if _, err := s.signer.ParseAndValidate(token); err != nil {
			http.Error(w, "invalid access_token", http.StatusUnauthorized)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn)

	go s.writeLoop(r.Context(), c)
	s.readLoop(r.Context(), c)

	// disconnect is the same transition as an explicit leave, just
	// initiated by the transport
	s.performLeave(c)

	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "err", err)
	}
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		s.dispatch(ctx, c, msg)
	}
}

func (s *Server) dispatch(ctx context.Context, c *wsConn, msg Message) {
	switch msg.Type {
	case TypeJoin:
		var p JoinPayload
		if decode(msg.Payload, &p) == nil {
			s.handleJoin(ctx, c, p)
		}
	case TypeChatMessage:
		var p ChatMessagePayload
		if decode(msg.Payload, &p) == nil {
			s.handleChatMessage(ctx, c, p)
		}
	case TypeMessageSeen:
		s.handleSeen(ctx, c)
	case TypeTyping:
		s.handleTyping(c)
	case TypeStopTyping:
		s.handleStopTyping(c)
	case TypeAddReaction, TypeRemoveReaction:
		var p ReactionPayload
		if decode(msg.Payload, &p) == nil {
			s.handleReaction(ctx, c, msg.Type, p)
		}
	case TypeTogglePin:
		var p PinPayload
		if decode(msg.Payload, &p) == nil {
			s.handleTogglePin(ctx, c, p)
		}
	case TypeEditMessage:
		var p EditPayload
		if decode(msg.Payload, &p) == nil {
			s.handleEdit(ctx, c, p)
		}
	case TypeDeleteMessage:
		var p DeletePayload
		if decode(msg.Payload, &p) == nil {
			s.handleDelete(ctx, c, p)
		}
	case TypeSearchMessages:
		var p SearchPayload
		if decode(msg.Payload, &p) == nil {
			s.handleSearch(ctx, c, p)
		}
	case TypeLeaveRoom:
		s.performLeave(c)
	default:
		// ignore
	}
}

func (s *Server) handleJoin(ctx context.Context, c *wsConn, p JoinPayload) {
	room := strings.TrimSpace(p.Room)
	username := strings.TrimSpace(p.Username)
	if room == "" || username == "" {
		return
	}
	if c.bound() {
		// rebinding requires an explicit leave first
		slog.Debug("join on bound connection ignored", "room", c.room, "user", c.username)
		return
	}

	c.room = room
	c.username = username
	s.hub.Add(room, c)

	// history to the joiner first, then presence and activity fan-out
	history, err := s.messages.History(ctx, room)
	if err != nil {
		slog.Warn("ws history load failed", "room", room, "user", username, "err", err)
	} else {
		if history == nil {
			history = []domain.Message{}
		}
		_ = c.Send(Message{Type: TypeChatHistory, Payload: history})
	}

	online := s.presence.Join(room, username)
	s.hub.Broadcast(room, Message{Type: TypeOnlineUsers, Payload: online})

	entry := s.activity.Append(domain.ActivityEntry{
		Type:     domain.ActivityJoin,
		Username: username,
		Room:     room,
	})
	s.hub.Broadcast(room, Message{Type: TypeActivityLog, Payload: entry})

	slog.Info("user joined room", "room", room, "user", username)
}

func (s *Server) handleChatMessage(ctx context.Context, c *wsConn, p ChatMessagePayload) {
	if !c.bound() {
		return
	}

	msg, err := s.messages.Create(ctx, c.room, c.username, p.Message, p.ReplyTo)
	if err != nil {
		if !errors.Is(err, domain.ErrEmptyMessage) && !errors.Is(err, domain.ErrMessageTooLong) {
			slog.Warn("ws chat save failed", "room", c.room, "user", c.username, "err", err)
		}
		return
	}

	// single broadcast to the whole room, sender included, so every client
	// converges on the stored message
	s.hub.Broadcast(c.room, Message{Type: TypeChatMessage, Payload: msg})

	// delivery ack to the sender only
	_ = c.Send(Message{
		Type:    TypeMessageDelivered,
		Payload: DeliveredPayload{MessageID: msg.ID, DeliveredTo: msg.DeliveredTo},
	})

	entryType := domain.ActivityMessage
	if msg.ReplyTo != nil {
		entryType = domain.ActivityReply
	}
	entry := s.activity.Append(domain.ActivityEntry{
		Type:     entryType,
		Username: c.username,
		Room:     c.room,
		Content:  msg.Content,
	})
	s.hub.Broadcast(c.room, Message{Type: TypeActivityLog, Payload: entry})
}

func (s *Server) handleSeen(ctx context.Context, c *wsConn) {
	if !c.bound() {
		return
	}

	ids, err := s.messages.MarkSeen(ctx, c.room, c.username)
	if err != nil {
		slog.Warn("ws mark seen failed", "room", c.room, "user", c.username, "err", err)
	}
	if len(ids) == 0 {
		return
	}
	s.hub.Broadcast(c.room, Message{
		Type:    TypeSeenUpdated,
		Payload: SeenUpdatedPayload{MessageIDs: ids, Username: c.username},
	})
}

func (s *Server) handleTyping(c *wsConn) {
	if !c.bound() {
		return
	}
	room, username := c.room, c.username

	s.typing.Mark(room, username, func() {
		s.hub.BroadcastExcept(room, Message{
			Type:    TypeUserStoppedTyping,
			Payload: UserTypingPayload{Username: username},
		}, c)
	})
	s.hub.BroadcastExcept(room, Message{
		Type:    TypeUserTyping,
		Payload: UserTypingPayload{Username: username},
	}, c)
}

func (s *Server) handleStopTyping(c *wsConn) {
	if !c.bound() {
		return
	}
	s.typing.Clear(c.room, c.username)
	s.hub.BroadcastExcept(c.room, Message{
		Type:    TypeUserStoppedTyping,
		Payload: UserTypingPayload{Username: c.username},
	}, c)
}

func (s *Server) handleReaction(ctx context.Context, c *wsConn, typ string, p ReactionPayload) {
	if !c.bound() || p.MessageID == "" || p.Emoji == "" {
		return
	}

	var (
		updated *domain.Message
		err     error
		outType string
	)
	if typ == TypeAddReaction {
		updated, err = s.messages.AddReaction(ctx, p.MessageID, p.Emoji, c.username)
		outType = TypeReactionAdded
	} else {
		updated, err = s.messages.RemoveReaction(ctx, p.MessageID, p.Emoji, c.username)
		outType = TypeReactionRemoved
	}
	if err != nil {
		if !errors.Is(err, domain.ErrMessageNotFound) {
			slog.Warn("ws reaction failed", "room", c.room, "message", p.MessageID, "err", err)
		}
		return
	}

	s.hub.Broadcast(c.room, Message{
		Type: outType,
		Payload: ReactionUpdatePayload{
			MessageID: updated.ID,
			Emoji:     p.Emoji,
			Username:  c.username,
			Reactions: updated.Reactions,
		},
	})
}

func (s *Server) handleTogglePin(ctx context.Context, c *wsConn, p PinPayload) {
	if !c.bound() || p.MessageID == "" {
		return
	}

	updated, err := s.messages.TogglePin(ctx, p.MessageID)
	if err != nil {
		if !errors.Is(err, domain.ErrMessageNotFound) {
			slog.Warn("ws toggle pin failed", "room", c.room, "message", p.MessageID, "err", err)
		}
		return
	}

	s.hub.Broadcast(c.room, Message{
		Type:    TypeMessagePinned,
		Payload: PinnedPayload{MessageID: updated.ID, Pinned: updated.Pinned},
	})
}

func (s *Server) handleEdit(ctx context.Context, c *wsConn, p EditPayload) {
	if !c.bound() || p.MessageID == "" {
		return
	}

	updated, err := s.messages.Edit(ctx, p.MessageID, c.username, p.NewContent)
	if err != nil {
		// a non-author edit is silently rejected: no broadcast, no log entry
		if !errors.Is(err, domain.ErrNotAuthorized) &&
			!errors.Is(err, domain.ErrMessageNotFound) &&
			!errors.Is(err, domain.ErrEmptyMessage) {
			slog.Warn("ws edit failed", "room", c.room, "message", p.MessageID, "err", err)
		}
		return
	}

	s.hub.Broadcast(c.room, Message{
		Type:    TypeMessageEdited,
		Payload: EditedPayload{MessageID: updated.ID, Message: updated.Content, Edited: true},
	})

	entry := s.activity.Append(domain.ActivityEntry{
		Type:     domain.ActivityEdit,
		Username: c.username,
		Room:     c.room,
		Content:  updated.Content,
	})
	s.hub.Broadcast(c.room, Message{Type: TypeActivityLog, Payload: entry})
}

func (s *Server) handleDelete(ctx context.Context, c *wsConn, p DeletePayload) {
	if !c.bound() || p.MessageID == "" {
		return
	}

	if err := s.messages.Delete(ctx, p.MessageID, c.username); err != nil {
		if !errors.Is(err, domain.ErrNotAuthorized) && !errors.Is(err, domain.ErrMessageNotFound) {
			slog.Warn("ws delete failed", "room", c.room, "message", p.MessageID, "err", err)
		}
		return
	}

	s.hub.Broadcast(c.room, Message{
		Type:    TypeMessageDeleted,
		Payload: DeletedPayload{MessageID: p.MessageID},
	})

	entry := s.activity.Append(domain.ActivityEntry{
		Type:     domain.ActivityDelete,
		Username: c.username,
		Room:     c.room,
	})
	s.hub.Broadcast(c.room, Message{Type: TypeActivityLog, Payload: entry})
}

func (s *Server) handleSearch(ctx context.Context, c *wsConn, p SearchPayload) {
	if !c.bound() || strings.TrimSpace(p.Query) == "" {
		return
	}

	// results go to the requester only
	results := s.messages.Search(ctx, c.room, p.Query)
	_ = c.Send(Message{Type: TypeSearchResults, Payload: results})
}

// performLeave runs the leave transition for a bound connection: typing
// cancel, hub removal, presence removal with fan-out, activity entry. It is
// shared by the explicit leaveRoom event and transport disconnect, which
// must be equivalent from the room's point of view.
func (s *Server) performLeave(c *wsConn) {
	if !c.bound() {
		return
	}
	room, username := c.room, c.username
	c.room, c.username = "", ""

	s.typing.Clear(room, username)
	s.hub.Remove(room, c)

	online := s.presence.Leave(room, username)
	s.hub.Broadcast(room, Message{Type: TypeOnlineUsers, Payload: online})

	entry := s.activity.Append(domain.ActivityEntry{
		Type:     domain.ActivityLeave,
		Username: username,
		Room:     room,
	})
	s.hub.Broadcast(room, Message{Type: TypeActivityLog, Payload: entry})

	slog.Info("user left room", "room", room, "user", username)
}

func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}

func decode(payload interface{}, dst interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return json.Unmarshal(b, dst)
}
