package http

import (
	"log"
	"net/http"
	"time"

	"quiz-rank-service/internal/app"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter wires the REST and WebSocket endpoints. An empty origin list
// allows every origin.
func NewRouter(service *app.RankingService, allowedOrigins []string) http.Handler {
	h := NewHandler(service)
	ws := NewWSHandler(service)

	r := mux.NewRouter()
	r.Use(logRequests)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/users", h.RegisterUser).Methods(http.MethodPost)
	r.HandleFunc("/users", h.ListUsers).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/stats", h.GetStats).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/results", h.RecentResults).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/role", h.UpdateRole).Methods(http.MethodPut)
	r.HandleFunc("/users/{id}", h.DeleteUser).Methods(http.MethodDelete)

	r.HandleFunc("/submissions", h.Submit).Methods(http.MethodPost)
	r.HandleFunc("/leaderboard", h.Leaderboard).Methods(http.MethodGet)

	r.HandleFunc("/admin/recompute", h.Recompute).Methods(http.MethodPost)
	r.HandleFunc("/admin/overview", h.Overview).Methods(http.MethodGet)

	r.HandleFunc("/ws/leaderboard", ws.ServeWS)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(r)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[HTTP] %s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
