package http

import (
	"log"
	"net/http"

	"quiz-rank-service/internal/app"
	"quiz-rank-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler streams leaderboard snapshots to browsers.
type WSHandler struct {
	service  *app.RankingService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.RankingService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS sends the current leaderboard, then one message per committed
// recompute pass until the client disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.service.Subscribe(r.Context())
	defer cancel()

	// Subscribe replays the last broadcast; the fresh read below replaces it.
	select {
	case <-updates:
	default:
	}

	initial, err := h.service.GetLeaderboard(r.Context(), limit)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[messagePayload]{Type: "error", Payload: messagePayload{Message: err.Error()}})
		return
	}
	if err := conn.WriteJSON(outboundMessage[domain.Leaderboard]{Type: "leaderboard", Payload: initial}); err != nil {
		return
	}

	// The client never sends anything meaningful; reading surfaces the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case lb, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[domain.Leaderboard]{Type: "leaderboard", Payload: truncate(lb, limit)}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-closed:
			return
		}
	}
}

func truncate(lb domain.Leaderboard, limit int) domain.Leaderboard {
	if limit <= 0 || len(lb.Entries) <= limit {
		return lb
	}
	return domain.Leaderboard{Entries: lb.Entries[:limit], UpdatedAt: lb.UpdatedAt}
}
