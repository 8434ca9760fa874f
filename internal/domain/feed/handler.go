package feed

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/starclip/starclip-api/internal/domain/wallet"
	"github.com/starclip/starclip-api/internal/middleware"
	"github.com/starclip/starclip-api/internal/pkg/response"
)

// Handler streams ledger events to connected UIs over websocket. Admins see
// every account; everyone else sees only their own.
type Handler struct {
	notifier *Notifier
	upgrader websocket.Upgrader
}

func NewHandler(notifier *Notifier, allowedOrigins []string) *Handler {
	return &Handler{
		notifier: notifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}
				return false
			},
		},
	}
}

func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}
	isAdmin := middleware.IsAdmin(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	events := make(chan wallet.LedgerEvent, 64)
	done := make(chan struct{})

	cancel := h.notifier.Subscribe(func(ev wallet.LedgerEvent) {
		if !isAdmin && ev.AccountID != userID {
			return
		}
		select {
		case events <- ev:
		case <-done:
		default:
			// Slow consumer: drop rather than block the notifier. The feed
			// is a hint to refresh, never the ledger itself.
		}
	})
	defer cancel()
	defer conn.Close()

	go func() {
		for {
			select {
			case <-done:
				return
			case ev := <-events:
				if err := conn.WriteJSON(map[string]interface{}{
					"type": "ledger:event",
					"data": ev,
				}); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop detects client disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(done)
}
