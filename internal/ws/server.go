// Package ws is the realtime transport: it upgrades connections, binds them
// to live matches, and pumps player actions into the game layer and match
// events back out.
package ws

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sleb/uno/internal/auth"
	"github.com/sleb/uno/internal/config"
	"github.com/sleb/uno/internal/game"
	"github.com/sleb/uno/internal/models"
)

// ActionStart is the host-only lobby action that deals the match. It is
// handled at the transport layer; the game layer only sees in-game actions.
const ActionStart = "action_start"

// Server owns the live match registry and the per-match fanout hubs.
type Server struct {
	cfg      config.Config
	registry *game.Registry

	mu   sync.Mutex
	hubs map[uuid.UUID]*hub
}

// NewServer creates a transport server around a match registry.
func NewServer(cfg config.Config, registry *game.Registry) *Server {
	return &Server{
		cfg:      cfg,
		registry: registry,
		hubs:     make(map[uuid.UUID]*hub),
	}
}

// CreateMatch builds a match with the given settings, wires its event
// callbacks to a fresh hub, and registers it.
func (s *Server) CreateMatch(settings game.Settings) *game.UnoMatch {
	g := game.NewUnoMatch(settings)
	h := newHub()

	s.mu.Lock()
	s.hubs[g.ID] = h
	s.mu.Unlock()

	g.BroadcastFn = h.broadcast
	g.BroadcastToPlayerFn = h.sendTo
	g.OnMatchEnd = func(matchID, winner uuid.UUID, scores map[uuid.UUID]int) {
		// Runs under the match lock; defer the teardown.
		go s.teardownMatch(matchID)
	}

	s.registry.Add(g)
	logrus.Infof("created match %s", g.ID)
	return g
}

// teardownMatch closes the hub and drops the match from the registry after a
// grace period so end-of-match events flush to clients.
func (s *Server) teardownMatch(matchID uuid.UUID) {
	time.Sleep(2 * time.Second)

	s.mu.Lock()
	h := s.hubs[matchID]
	delete(s.hubs, matchID)
	s.mu.Unlock()

	if h != nil {
		h.closeAll("match ended")
	}
	s.registry.Remove(matchID)
	logrus.Infof("match %s torn down", matchID)
}

func (s *Server) hubFor(matchID uuid.UUID) *hub {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hubs[matchID]
}

// HandleWS upgrades a connection and binds it to a match. The session token
// rides in the query string because browser websocket clients cannot set
// headers.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	matchID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid match id", http.StatusBadRequest)
		return
	}
	claims, err := auth.VerifyToken([]byte(s.cfg.JWTSecret), r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	g, exists := s.registry.Get(matchID)
	h := s.hubFor(matchID)
	if !exists || h == nil {
		http.Error(w, "match not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		logrus.Debugf("websocket accept failed: %v", err)
		return
	}

	c := newClient(claims.UserID, claims.Username, conn)
	if prev := h.attach(c); prev != nil {
		prev.close(websocket.StatusNormalClosure, "superseded by a new session")
	}

	g.Mu.Lock()
	seated := false
	for _, id := range g.State.Players {
		if id == claims.UserID {
			seated = true
			break
		}
	}
	if seated {
		g.HandleReconnect(claims.UserID)
	} else if !g.AddPlayer(claims.UserID, claims.Username) {
		g.Mu.Unlock()
		h.detach(c)
		c.close(websocket.StatusPolicyViolation, "cannot join this match")
		return
	} else {
		g.HandleReconnect(claims.UserID) // initial private sync
	}
	g.Mu.Unlock()

	ctx := r.Context()
	go c.writePump(ctx)
	s.readPump(ctx, g, h, c)
}

// readPump decodes client actions until the connection drops.
func (s *Server) readPump(ctx context.Context, g *game.UnoMatch, h *hub, c *client) {
	defer func() {
		h.detach(c)
		c.close(websocket.StatusNormalClosure, "session over")
		g.Mu.Lock()
		g.HandleDisconnect(c.playerID)
		g.Mu.Unlock()
	}()

	for {
		var action models.GameAction
		if err := wsjson.Read(ctx, c.conn, &action); err != nil {
			logrus.Debugf("read from %s ended: %v", c.playerID, err)
			return
		}
		switch action.ActionType {
		case ActionStart:
			s.handleStart(g, c)
		default:
			g.HandlePlayerAction(c.playerID, action)
		}
	}
}

// handleStart deals the match if the requester hosts it.
func (s *Server) handleStart(g *game.UnoMatch, c *client) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if g.State.HostID != c.playerID {
		logrus.Infof("match %s: start refused, %s is not the host", g.ID, c.playerID)
		return
	}
	if err := g.Start(randomSeed()); err != nil {
		logrus.Infof("match %s: start refused: %v", g.ID, err)
	}
}

// randomSeed draws a shuffle seed from the system entropy pool.
func randomSeed() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// Shutdown closes every hub; in-flight matches stay persisted for pickup.
func (s *Server) Shutdown(ctx context.Context) {
	s.mu.Lock()
	hubs := make([]*hub, 0, len(s.hubs))
	for _, h := range s.hubs {
		hubs = append(hubs, h)
	}
	s.hubs = make(map[uuid.UUID]*hub)
	s.mu.Unlock()

	for _, h := range hubs {
		h.closeAll("server shutting down")
	}
}
