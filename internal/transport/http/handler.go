package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/parley-chat/session-service/internal/activity"
	"github.com/parley-chat/session-service/internal/domain"
	"github.com/parley-chat/session-service/internal/postgres"
	"github.com/parley-chat/session-service/internal/security"
	"github.com/parley-chat/session-service/internal/service"
	httpmw "github.com/parley-chat/session-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

// MessagePager is the scrollback slice of the message store.
type MessagePager interface {
	ListPage(ctx context.Context, room, after string, limit int) ([]domain.Message, string, error)
}

type Handler struct {
	authSvc  *service.AuthService
	roomSvc  *service.RoomService
	pager    MessagePager
	activity *activity.Log
}

func NewHandler(auth *service.AuthService, room *service.RoomService, pager MessagePager, log *activity.Log) *Handler {
	return &Handler{
		authSvc:  auth,
		roomSvc:  room,
		pager:    pager,
		activity: log,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	_, err := h.authSvc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserExists):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "username or email already exists"})
		case errors.Is(err, security.ErrPasswordTooShort):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "password too short"})
		default:
			slog.Error("handler.Register:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "user registered"})
}

// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	user, token, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "user not found"})
		case errors.Is(err, domain.ErrWrongPassword):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid password"})
		default:
			slog.Error("handler.Login:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
	})
}

// POST /api/rooms/join
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	var req JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	if req.RoomName == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "room name is required"})
		return
	}

	room, created, err := h.roomSvc.JoinOrCreate(r.Context(), req.RoomName, domain.RoomType(req.RoomType), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrWrongPassword):
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "incorrect room password"})
		case errors.Is(err, security.ErrPasswordTooShort):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "room password too short"})
		default:
			slog.Error("handler.JoinRoom:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server error"})
		}
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		slog.Info("room created",
			"room", room.Name, "type", room.Type,
			"user_id", httpmw.UserIDFromCtx(r.Context()),
			"username", httpmw.UsernameFromCtx(r.Context()))
	}
	writeJSON(w, status, JoinRoomResponse{Room: toRoomItem(room), Created: created})
}

// GET /api/rooms/public
func (h *Handler) ListPublicRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.roomSvc.ListPublic(r.Context())
	if err != nil {
		slog.Error("handler.ListPublicRooms:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server error"})
		return
	}

	resp := RoomsListResponse{Rooms: make([]RoomItem, 0, len(rooms))}
	for i := range rooms {
		resp.Rooms = append(resp.Rooms, toRoomItem(&rooms[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/rooms/{room}/activity?limit=
func (h *Handler) GetActivity(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	writeJSON(w, http.StatusOK, ActivityResponse{Entries: h.activity.Recent(room, limit)})
}

// GET /api/rooms/{room}/messages?after=&limit=
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	after := r.URL.Query().Get("after")
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	items, next, err := h.pager.ListPage(r.Context(), room, after, limit)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid cursor"})
			return
		}
		slog.Error("handler.GetMessages:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server error"})
		return
	}
	if items == nil {
		items = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, MessagesPageResponse{Items: items, NextCursor: next})
}
