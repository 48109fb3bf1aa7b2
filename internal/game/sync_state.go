package game

import (
	"github.com/google/uuid"

	"github.com/sleb/uno/engine"
	"github.com/sleb/uno/internal/models"
)

// ObfPlayerState is one seat as a given observer may see it. Only the
// observer's own seat carries the actual cards; everyone else is a count.
type ObfPlayerState struct {
	ID        uuid.UUID     `json:"id"`
	Username  string        `json:"username"`
	HandCount int           `json:"handCount"`
	Hand      []engine.Card `json:"hand,omitempty"`
	Connected bool          `json:"connected"`
}

// ObfMatchState is the full match state obfuscated for one observer. It is
// what a client needs to render the table: public pile state, turn state,
// and per-seat summaries.
type ObfMatchState struct {
	MatchID       uuid.UUID          `json:"matchId"`
	Status        models.MatchStatus `json:"status"`
	Players       []ObfPlayerState   `json:"players"`
	CurrentPlayer uuid.UUID          `json:"currentPlayer"`
	Direction     engine.Direction   `json:"direction"`
	DiscardTop    *engine.Card       `json:"discardTop,omitempty"`
	ActiveColor   engine.Color       `json:"activeColor"`
	MustDraw      int                `json:"mustDraw"`
	DrawPileCount int                `json:"drawPileCount"`
	HouseRules    engine.HouseRules  `json:"houseRules,omitempty"`
}

// BuildSyncState assembles the obfuscated view for one observer.
// Assumes lock is held by caller.
func (g *UnoMatch) BuildSyncState(observerID uuid.UUID) *ObfMatchState {
	state := &ObfMatchState{
		MatchID:       g.ID,
		Status:        g.State.Status,
		Players:       make([]ObfPlayerState, 0, len(g.State.Players)),
		Direction:     g.State.Direction,
		MustDraw:      g.State.MustDraw,
		DrawPileCount: len(g.State.DrawPile),
		HouseRules:    g.State.HouseRules,
	}
	if g.State.Status == models.StatusInProgress {
		state.CurrentPlayer = g.State.CurrentPlayerID()
	}
	if len(g.State.DiscardPile) > 0 {
		top := g.State.DiscardTop()
		state.DiscardTop = &top
		state.ActiveColor = engine.ActiveColor(top, g.State.CurrentColor)
	}
	for _, playerID := range g.State.Players {
		seat := ObfPlayerState{
			ID:        playerID,
			Username:  g.Usernames[playerID],
			HandCount: len(g.Hands[playerID]),
			Connected: g.Connected[playerID],
		}
		if playerID == observerID {
			// The view outlives the lock (queued for the write pump), so it
			// must not share the live hand's backing array.
			seat.Hand = append([]engine.Card(nil), g.Hands[playerID]...)
		}
		state.Players = append(state.Players, seat)
	}
	return state
}

// sendSyncState pushes the observer's private view of the match to them.
// Assumes lock is held by caller.
func (g *UnoMatch) sendSyncState(playerID uuid.UUID) {
	g.fireEventToPlayer(playerID, GameEvent{
		Type:  EventPrivateSync,
		User:  &EventUser{ID: playerID},
		State: g.BuildSyncState(playerID),
	})
}

// broadcastSyncStateToAll sends each connected player their own obfuscated
// view. Assumes lock is held by caller.
func (g *UnoMatch) broadcastSyncStateToAll() {
	for _, playerID := range g.State.Players {
		if g.Connected[playerID] {
			g.sendSyncState(playerID)
		}
	}
}
