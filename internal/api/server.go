package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nightcourt-labs/verdict/internal/profile"
	"github.com/nightcourt-labs/verdict/internal/scoring"
	"github.com/nightcourt-labs/verdict/internal/store"
)

type DailyReader interface {
	GetDaily(ctx context.Context, date, groupID, userID string) (*store.DailyAggregate, bool, error)
}

type ProfileBuilder interface {
	Build(ctx context.Context, groupID, userID, userName string) (*profile.Profile, error)
}

type Server struct {
	router *chi.Mux
	port   int
}

func NewServer(port int, apiToken string, daily DailyReader, profiles ProfileBuilder) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{router: router, port: port}

	router.Get("/health", s.health)

	router.Route("/api/v1", func(r chi.Router) {
		if apiToken != "" {
			r.Use(bearerAuth(apiToken))
		}
		r.Get("/daily/{date}/{group}/{user}", s.getDaily(daily))
		r.Post("/profile", s.postProfile(profiles))
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getDaily(daily DailyReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := chi.URLParam(r, "date")
		group := chi.URLParam(r, "group")
		user := chi.URLParam(r, "user")

		agg, ok, err := daily.GetDaily(r.Context(), date, group, user)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no aggregate for that day"})
			return
		}
		writeJSON(w, http.StatusOK, agg)
	}
}

type profileRequest struct {
	GroupID  string `json:"group_id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
}

func (s *Server) postProfile(profiles ProfileBuilder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req profileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
			return
		}
		if req.GroupID == "" || req.UserID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "group_id and user_id are required"})
			return
		}
		if req.UserName == "" {
			req.UserName = "user " + req.UserID
		}

		p, err := profiles.Build(r.Context(), req.GroupID, req.UserID, req.UserName)
		if errors.Is(err, scoring.ErrInsufficientData) {
			// A distinct cannot-score result, not a zero score.
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error":  "insufficient_data",
				"detail": "too quiet today to measure a persona",
			})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+token {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
