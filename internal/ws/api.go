package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sleb/uno/internal/auth"
	"github.com/sleb/uno/internal/cache"
	"github.com/sleb/uno/internal/database"
	"github.com/sleb/uno/internal/game"
	"github.com/sleb/uno/internal/models"
)

// Routes wires the HTTP API and the websocket endpoint onto a mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/matches", s.handleCreateMatch)
	mux.HandleFunc("GET /api/matches/{id}", s.handleGetMatch)
	mux.HandleFunc("GET /api/matches/{id}/history", s.handleMatchHistory)
	mux.HandleFunc("GET /ws/matches/{id}", s.HandleWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":      "ok",
			"liveMatches": s.registry.Len(),
		})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Debugf("writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Username == "" || req.Email == "" || len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "username, email and a password of at least 8 characters are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logrus.Errorf("hashing password: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	user := &models.User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := database.CreateUser(ctx, user); err != nil {
		logrus.Infof("registration for %s failed: %v", req.Email, err)
		writeError(w, http.StatusConflict, "could not create account")
		return
	}

	token, err := auth.CreateToken([]byte(s.cfg.JWTSecret), user.ID, user.Username)
	if err != nil {
		logrus.Errorf("signing token: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":    user.ID.String(),
		"token": token,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	user, err := database.GetUserByEmail(ctx, strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	ok, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil || !ok {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.CreateToken([]byte(s.cfg.JWTSecret), user.ID, user.Username)
	if err != nil {
		logrus.Errorf("signing token: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":    user.ID.String(),
		"token": token,
	})
}

// authenticate resolves the bearer token on an API request.
func (s *Server) authenticate(r *http.Request) (*auth.Claims, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return nil, false
	}
	claims, err := auth.VerifyToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return nil, false
	}
	return claims, true
}

type createMatchRequest struct {
	Settings map[string]interface{} `json:"settings"`
}

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req createMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settings := game.DefaultSettings()
	settings.TurnTimerSec = s.cfg.TurnTimerSec
	if req.Settings != nil {
		if err := settings.Update(req.Settings); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	g := s.CreateMatch(settings)
	if database.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := database.CreateMatch(ctx, g.State); err != nil {
			logrus.Errorf("persisting new match %s: %v", g.ID, err)
		}
	}
	logrus.Infof("match %s created by %s", g.ID, claims.UserID)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"matchId":  g.ID.String(),
		"settings": settings,
	})
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	matchID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid match id")
		return
	}

	if g, live := s.registry.Get(matchID); live {
		g.Mu.Lock()
		view := g.BuildSyncState(claims.UserID)
		g.Mu.Unlock()
		writeJSON(w, http.StatusOK, view)
		return
	}

	if database.DB == nil {
		writeError(w, http.StatusNotFound, "match not found")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	m, err := database.GetMatch(ctx, matchID)
	if err == database.ErrMatchNotFound {
		writeError(w, http.StatusNotFound, "match not found")
		return
	}
	if err != nil {
		logrus.Errorf("loading match %s: %v", matchID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	// Completed records are public: hands were already revealed by scoring.
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"matchId": m.ID.String(),
		"status":  m.Status,
		"winner":  m.WinnerID.String(),
		"scores":  m.Scores,
	})
}

func (s *Server) handleMatchHistory(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(r); !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	matchID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid match id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	records, err := cache.MatchActionHistory(ctx, matchID)
	if err != nil {
		logrus.Errorf("loading history for match %s: %v", matchID, err)
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"actions": records})
}
