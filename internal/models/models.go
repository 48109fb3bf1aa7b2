// Package models defines the schema contracts shared between the action
// handler, the persistence layer and the realtime transport. Values are
// validated once, at the boundary where they are decoded; internal code
// trusts the invariants after that.
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sleb/uno/engine"
)

// MatchStatus is the lifecycle phase of a match record.
type MatchStatus string

const (
	StatusLobby      MatchStatus = "lobby"
	StatusInProgress MatchStatus = "in_progress"
	StatusCompleted  MatchStatus = "completed"
)

// Match is the persisted match record. Players is the seating order fixed at
// start and never reordered during play; the engine's turn sequencer indexes
// into it. Version is the optimistic-concurrency token: a commit carries the
// version it read, and the store rejects the write if the row has moved on.
type Match struct {
	ID           uuid.UUID         `json:"id"`
	Status       MatchStatus       `json:"status"`
	HostID       uuid.UUID         `json:"hostId"`
	Players      []uuid.UUID       `json:"players"`
	CurrentTurn  int               `json:"currentTurn"`
	Direction    engine.Direction  `json:"direction"`
	CurrentColor engine.Color      `json:"currentColor"`
	MustDraw     int               `json:"mustDraw"`
	DrawnThisTurn bool             `json:"drawnThisTurn"`
	DrawPile     []engine.Card     `json:"drawPile"`
	DiscardPile  []engine.Card     `json:"discardPile"` // top = last element
	HouseRules   engine.HouseRules `json:"houseRules"`
	Seed         uint64            `json:"seed"`
	WinnerID     uuid.UUID         `json:"winnerId,omitempty"`
	Scores       map[string]int    `json:"scores,omitempty"` // keyed by player UUID string
	Version      int64             `json:"version"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// CurrentPlayerID returns the identifier of the player whose turn it is.
func (m *Match) CurrentPlayerID() uuid.UUID {
	if m.CurrentTurn < 0 || m.CurrentTurn >= len(m.Players) {
		return uuid.Nil
	}
	return m.Players[m.CurrentTurn]
}

// DiscardTop returns the top discard card. Only valid once the match has
// started; a started match always has a non-empty discard pile.
func (m *Match) DiscardTop() engine.Card {
	return m.DiscardPile[len(m.DiscardPile)-1]
}

// Hand is a player's persisted hand record: an unordered multiset of card
// values owned by exactly one player.
type Hand struct {
	MatchID  uuid.UUID     `json:"matchId"`
	PlayerID uuid.UUID     `json:"playerId"`
	Cards    []engine.Card `json:"cards"`
}

// User is a registered account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
}

// GameAction is the wire shape of a client-submitted action.
type GameAction struct {
	ActionType string                 `json:"action"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// Client action type identifiers.
const (
	ActionPlayCard = "action_play_card"
	ActionDrawCard = "action_draw_card"
	ActionPass     = "action_pass"
)
