package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/parley-chat/session-service/internal/activity"
	"github.com/parley-chat/session-service/internal/domain"
	"github.com/parley-chat/session-service/internal/presence"
	"github.com/parley-chat/session-service/internal/typing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMessages is an in-memory MessageSvc with the same authorization and
// set semantics as the real lifecycle manager.
type fakeMessages struct {
	mu       sync.Mutex
	presence *presence.Registry
	msgs     []*domain.Message
}

func (f *fakeMessages) Create(_ context.Context, room, author, content string, replyTo *string) (*domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, domain.ErrEmptyMessage
	}

	deliveredTo := make([]string, 0)
	for _, u := range f.presence.Online(room) {
		if u != author {
			deliveredTo = append(deliveredTo, u)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	m := &domain.Message{
		ID:          uuid.New().String(),
		Room:        room,
		Username:    author,
		Content:     content,
		CreatedAt:   time.Now(),
		SeenBy:      []string{},
		DeliveredTo: deliveredTo,
		ReplyTo:     replyTo,
		Reactions:   domain.Reactions{},
	}
	f.msgs = append(f.msgs, m)
	cp := *m
	return &cp, nil
}

func (f *fakeMessages) find(id string) *domain.Message {
	for _, m := range f.msgs {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (f *fakeMessages) Edit(_ context.Context, id, editor, newContent string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.find(id)
	if m == nil {
		return nil, domain.ErrMessageNotFound
	}
	if m.Username != editor {
		return nil, domain.ErrNotAuthorized
	}
	m.EditHistory = append(m.EditHistory, domain.EditSnapshot{Content: m.Content, Timestamp: time.Now()})
	m.Content = newContent
	m.Edited = true
	cp := *m
	return &cp, nil
}

func (f *fakeMessages) Delete(_ context.Context, id, requester string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.msgs {
		if m.ID == id {
			if m.Username != requester {
				return domain.ErrNotAuthorized
			}
			f.msgs = append(f.msgs[:i], f.msgs[i+1:]...)
			return nil
		}
	}
	return domain.ErrMessageNotFound
}

func (f *fakeMessages) TogglePin(_ context.Context, id string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.find(id)
	if m == nil {
		return nil, domain.ErrMessageNotFound
	}
	m.Pinned = !m.Pinned
	cp := *m
	return &cp, nil
}

func (f *fakeMessages) AddReaction(_ context.Context, id, emoji, username string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.find(id)
	if m == nil {
		return nil, domain.ErrMessageNotFound
	}
	m.Reactions = m.Reactions.Add(emoji, username)
	cp := *m
	return &cp, nil
}

func (f *fakeMessages) RemoveReaction(_ context.Context, id, emoji, username string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.find(id)
	if m == nil {
		return nil, domain.ErrMessageNotFound
	}
	m.Reactions = m.Reactions.Remove(emoji, username)
	cp := *m
	return &cp, nil
}

func (f *fakeMessages) MarkSeen(_ context.Context, room, viewer string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, m := range f.msgs {
		if m.Room == room && m.MarkSeenBy(viewer) {
			ids = append(ids, m.ID)
		}
	}
	return ids, nil
}

func (f *fakeMessages) History(_ context.Context, room string) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Message{}
	for _, m := range f.msgs {
		if m.Room == room {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMessages) Search(_ context.Context, room, query string) []domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Message{}
	for _, m := range f.msgs {
		if m.Room == room && strings.Contains(m.Content, query) {
			out = append(out, *m)
		}
	}
	return out
}

// envelope mirrors Message with a raw payload for test-side decoding.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type testClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dialClient(t *testing.T, srv *httptest.Server) *testClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &testClient{t: t, conn: conn}
}

func (c *testClient) send(typ string, payload any) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(Message{Type: typ, Payload: payload}))
}

// expect reads events until one of the wanted type arrives, skipping
// unrelated fan-out along the way.
func (c *testClient) expect(typ string) envelope {
	c.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		_ = c.conn.SetReadDeadline(deadline)
		_, data, err := c.conn.ReadMessage()
		require.NoError(c.t, err, "waiting for %q", typ)
		var env envelope
		require.NoError(c.t, json.Unmarshal(data, &env))
		if env.Type == typ {
			return env
		}
	}
}

// expectNone asserts that no event of the given type arrives within wait.
func (c *testClient) expectNone(typ string, wait time.Duration) {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(wait))
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return // deadline hit, nothing of the sort arrived
		}
		var env envelope
		if json.Unmarshal(data, &env) == nil && env.Type == typ {
			c.t.Fatalf("unexpected %q event: %s", typ, env.Payload)
		}
	}
}

func newTestServer(t *testing.T, typingTimeout time.Duration) (*httptest.Server, *fakeMessages) {
	t.Helper()
	reg := presence.NewRegistry()
	msgs := &fakeMessages{presence: reg}
	coord := NewServer(NewHub(), reg, typing.NewTracker(typingTimeout), msgs, activity.NewLog(), nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", coord.HandleWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, msgs
}

func TestCoordinator_JoinAndChat(t *testing.T) {
	srv, _ := newTestServer(t, time.Second)

	alice := dialClient(t, srv)
	alice.send(TypeJoin, JoinPayload{Room: "general", Username: "alice"})

	var history []domain.Message
	env := alice.expect(TypeChatHistory)
	require.NoError(t, json.Unmarshal(env.Payload, &history))
	assert.Empty(t, history, "fresh room has no history")

	var online []string
	env = alice.expect(TypeOnlineUsers)
	require.NoError(t, json.Unmarshal(env.Payload, &online))
	assert.Equal(t, []string{"alice"}, online)

	var entry domain.ActivityEntry
	env = alice.expect(TypeActivityLog)
	require.NoError(t, json.Unmarshal(env.Payload, &entry))
	assert.Equal(t, domain.ActivityJoin, entry.Type)
	assert.Equal(t, "alice", entry.Username)

	bob := dialClient(t, srv)
	bob.send(TypeJoin, JoinPayload{Room: "general", Username: "bob"})
	bob.expect(TypeChatHistory)

	env = alice.expect(TypeOnlineUsers)
	require.NoError(t, json.Unmarshal(env.Payload, &online))
	assert.Equal(t, []string{"alice", "bob"}, online)

	bob.send(TypeChatMessage, ChatMessagePayload{Message: "hi"})

	var aliceMsg, bobMsg domain.Message
	env = alice.expect(TypeChatMessage)
	require.NoError(t, json.Unmarshal(env.Payload, &aliceMsg))
	env = bob.expect(TypeChatMessage)
	require.NoError(t, json.Unmarshal(env.Payload, &bobMsg))

	// sender and recipients converge on the same stored message
	assert.Equal(t, aliceMsg.ID, bobMsg.ID)
	assert.Equal(t, "hi", aliceMsg.Content)
	assert.Equal(t, []string{"alice"}, aliceMsg.DeliveredTo)
	assert.Empty(t, aliceMsg.SeenBy)

	// delivery ack goes to the sender only
	var ack DeliveredPayload
	env = bob.expect(TypeMessageDelivered)
	require.NoError(t, json.Unmarshal(env.Payload, &ack))
	assert.Equal(t, bobMsg.ID, ack.MessageID)
	assert.Equal(t, []string{"alice"}, ack.DeliveredTo)

	// alice marks the room seen; both ends get the patch
	alice.send(TypeMessageSeen, SeenPayload{})
	var seen SeenUpdatedPayload
	env = bob.expect(TypeSeenUpdated)
	require.NoError(t, json.Unmarshal(env.Payload, &seen))
	assert.Equal(t, []string{bobMsg.ID}, seen.MessageIDs)
	assert.Equal(t, "alice", seen.Username)
}

func TestCoordinator_TypingDebounce(t *testing.T) {
	srv, _ := newTestServer(t, 150*time.Millisecond)

	alice := dialClient(t, srv)
	alice.send(TypeJoin, JoinPayload{Room: "general", Username: "alice"})
	alice.expect(TypeOnlineUsers)

	bob := dialClient(t, srv)
	bob.send(TypeJoin, JoinPayload{Room: "general", Username: "bob"})
	bob.expect(TypeOnlineUsers)

	alice.send(TypeTyping, TypingPayload{})

	var p UserTypingPayload
	env := bob.expect(TypeUserTyping)
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "alice", p.Username)

	// the originator is excluded from typing notices
	alice.expectNone(TypeUserTyping, 100*time.Millisecond)

	// without renewal the deadline yields exactly one stop notice
	env = bob.expect(TypeUserStoppedTyping)
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "alice", p.Username)
	bob.expectNone(TypeUserStoppedTyping, 300*time.Millisecond)
}

func TestCoordinator_StopTypingCancelsExpiry(t *testing.T) {
	srv, _ := newTestServer(t, 150*time.Millisecond)

	alice := dialClient(t, srv)
	alice.send(TypeJoin, JoinPayload{Room: "general", Username: "alice"})
	alice.expect(TypeOnlineUsers)

	bob := dialClient(t, srv)
	bob.send(TypeJoin, JoinPayload{Room: "general", Username: "bob"})
	bob.expect(TypeOnlineUsers)

	alice.send(TypeTyping, TypingPayload{})
	bob.expect(TypeUserTyping)

	alice.send(TypeStopTyping, TypingPayload{})
	bob.expect(TypeUserStoppedTyping)

	// the explicit stop cancelled the deadline; no second notice fires
	bob.expectNone(TypeUserStoppedTyping, 300*time.Millisecond)
}

func TestCoordinator_EditAuthorization(t *testing.T) {
	srv, msgs := newTestServer(t, time.Second)

	alice := dialClient(t, srv)
	alice.send(TypeJoin, JoinPayload{Room: "general", Username: "alice"})
	alice.expect(TypeOnlineUsers)

	bob := dialClient(t, srv)
	bob.send(TypeJoin, JoinPayload{Room: "general", Username: "bob"})
	bob.expect(TypeOnlineUsers)

	alice.send(TypeChatMessage, ChatMessagePayload{Message: "original"})
	var msg domain.Message
	env := alice.expect(TypeChatMessage)
	require.NoError(t, json.Unmarshal(env.Payload, &msg))
	bob.expect(TypeChatMessage)

	// a non-author edit is silently rejected: no broadcast at all
	bob.send(TypeEditMessage, EditPayload{MessageID: msg.ID, NewContent: "hijacked"})
	alice.expectNone(TypeMessageEdited, 150*time.Millisecond)
	assert.Equal(t, "original", msgs.find(msg.ID).Content)

	alice.send(TypeEditMessage, EditPayload{MessageID: msg.ID, NewContent: "fixed"})
	var edited EditedPayload
	env = bob.expect(TypeMessageEdited)
	require.NoError(t, json.Unmarshal(env.Payload, &edited))
	assert.Equal(t, "fixed", edited.Message)
	assert.True(t, edited.Edited)
}

func TestCoordinator_DisconnectEqualsLeave(t *testing.T) {
	srv, _ := newTestServer(t, time.Second)

	alice := dialClient(t, srv)
	alice.send(TypeJoin, JoinPayload{Room: "general", Username: "alice"})
	alice.expect(TypeOnlineUsers)

	bob := dialClient(t, srv)
	bob.send(TypeJoin, JoinPayload{Room: "general", Username: "bob"})
	bob.expect(TypeOnlineUsers)

	// bob's transport drops without a leaveRoom event
	require.NoError(t, bob.conn.Close())

	var online []string
	env := alice.expect(TypeOnlineUsers)
	require.NoError(t, json.Unmarshal(env.Payload, &online))
	assert.Equal(t, []string{"alice"}, online)

	var entry domain.ActivityEntry
	env = alice.expect(TypeActivityLog)
	require.NoError(t, json.Unmarshal(env.Payload, &entry))
	assert.Equal(t, domain.ActivityLeave, entry.Type)
	assert.Equal(t, "bob", entry.Username)
}

func TestCoordinator_SearchGoesToRequesterOnly(t *testing.T) {
	srv, _ := newTestServer(t, time.Second)

	alice := dialClient(t, srv)
	alice.send(TypeJoin, JoinPayload{Room: "general", Username: "alice"})
	alice.expect(TypeOnlineUsers)

	bob := dialClient(t, srv)
	bob.send(TypeJoin, JoinPayload{Room: "general", Username: "bob"})
	bob.expect(TypeOnlineUsers)

	alice.send(TypeChatMessage, ChatMessagePayload{Message: "needle in a haystack"})
	alice.expect(TypeChatMessage)
	bob.expect(TypeChatMessage)

	bob.send(TypeSearchMessages, SearchPayload{Query: "needle"})

	var results []domain.Message
	env := bob.expect(TypeSearchResults)
	require.NoError(t, json.Unmarshal(env.Payload, &results))
	require.Len(t, results, 1)
	assert.Equal(t, "needle in a haystack", results[0].Content)

	alice.expectNone(TypeSearchResults, 150*time.Millisecond)
}
