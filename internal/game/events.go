package game

import (
	"github.com/google/uuid"

	"github.com/sleb/uno/engine"
)

// GameEventType identifies a realtime event broadcast to clients.
type GameEventType string

const (
	EventMatchStart      GameEventType = "match_start"       // Public: match left the lobby.
	EventPlayerTurn      GameEventType = "player_turn"       // Public: whose turn it is now.
	EventPlayerPlay      GameEventType = "player_play"       // Public: a card was played (fully revealed).
	EventPlayerDraw      GameEventType = "player_draw"       // Public: a player drew (count only).
	EventPrivateDraw     GameEventType = "private_draw"      // Private: the drawn cards' details.
	EventPlayerPass      GameEventType = "player_pass"       // Public: player passed after drawing.
	EventColorDeclared   GameEventType = "color_declared"    // Public: wild color declaration.
	EventPileReshuffle   GameEventType = "pile_reshuffle"    // Public: discard reshuffled into draw pile.
	EventActionRejected  GameEventType = "action_rejected"   // Private: rule rejection with reason.
	EventPlayerUno       GameEventType = "player_uno"        // Public: player is down to one card.
	EventPrivateSync     GameEventType = "private_sync"      // Private: full obfuscated state sync.
	EventMatchEnd        GameEventType = "match_end"         // Public: match over, includes scores.
	EventPlayerJoined    GameEventType = "player_joined"     // Public: lobby membership change.
	EventPlayerLeft      GameEventType = "player_left"       // Public: lobby membership change.
)

// EventUser identifies a user within an event payload.
type EventUser struct {
	ID uuid.UUID `json:"id"`
}

// GameEvent is the standard broadcast structure for match state changes.
// Card uses the shared schema card shape, so clients decode it with the same
// contract as persisted records.
type GameEvent struct {
	Type  GameEventType `json:"type"`
	User  *EventUser    `json:"user,omitempty"`
	Card  *engine.Card  `json:"card,omitempty"`
	Color string        `json:"color,omitempty"`

	Payload map[string]interface{} `json:"payload,omitempty"`

	State *ObfMatchState `json:"state,omitempty"`
}
