package http

import (
	"net/http"
	"time"

	"github.com/parley-chat/session-service/internal/security"
	httpmw "github.com/parley-chat/session-service/internal/transport/http/middleware"
	"github.com/parley-chat/session-service/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler, signer *security.TokenSigner, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)

	// WS endpoint; the coordinator does its own token check
	r.Get("/ws", wsServer.HandleWS)

	r.Route("/api", func(api chi.Router) {
		api.Use(middlewareChi.Timeout(30 * time.Second))

		api.Route("/auth", func(ar chi.Router) {
			ar.Post("/register", h.Register)
			ar.Post("/login", h.Login)
		})

		api.Route("/rooms", func(rm chi.Router) {
			rm.Use(httpmw.AuthMiddleware(signer))

			rm.Post("/join", h.JoinRoom)
			rm.Get("/public", h.ListPublicRooms)

			rm.Route("/{room}", func(rr chi.Router) {
				rr.Get("/activity", h.GetActivity)
				rr.Get("/messages", h.GetMessages)
			})
		})
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
