package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sleb/uno/engine"
	"github.com/sleb/uno/internal/database"
	"github.com/sleb/uno/internal/models"
)

// Errors returned by lifecycle operations. Rule violations during play are
// not errors: they surface to the acting player as action_rejected events.
var (
	ErrAlreadyStarted   = errors.New("match already started")
	ErrNotEnoughPlayers = errors.New("not enough players to start")
)

// HandlePlayerAction validates and applies one player action. Rule
// violations reject with a reason; only a legal action mutates state.
func (g *UnoMatch) HandlePlayerAction(playerID uuid.UUID, action models.GameAction) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.State.Status != models.StatusInProgress {
		g.rejectAction(playerID, action.ActionType, "match is not in progress")
		return
	}
	if g.State.CurrentPlayerID() != playerID {
		g.rejectAction(playerID, action.ActionType, "not your turn")
		return
	}

	switch action.ActionType {
	case models.ActionPlayCard:
		g.handlePlayCard(playerID, action.Payload)
	case models.ActionDrawCard:
		g.handleDrawCard(playerID)
	case models.ActionPass:
		g.handlePass(playerID)
	default:
		g.rejectAction(playerID, action.ActionType, "unknown action type")
	}
}

// handlePlayCard applies a play_card action: the named card must be in the
// player's hand and legal on the current pile state. Wild plays carry a
// chosenColor declaration. Assumes lock is held by caller.
func (g *UnoMatch) handlePlayCard(playerID uuid.UUID, payload map[string]interface{}) {
	card, err := cardFromPayload(payload)
	if err != nil {
		g.rejectAction(playerID, models.ActionPlayCard, err.Error())
		return
	}

	handIdx := -1
	for i, c := range g.Hands[playerID] {
		if c == card {
			handIdx = i
			break
		}
	}
	if handIdx < 0 {
		g.rejectAction(playerID, models.ActionPlayCard, "card is not in your hand")
		return
	}

	chosenColor := engine.ColorNone
	if card.Kind == engine.KindWild {
		raw, _ := payload["chosenColor"].(string)
		chosenColor, err = engine.ParseColor(raw)
		if err != nil || chosenColor == engine.ColorNone {
			g.rejectAction(playerID, models.ActionPlayCard, "wild plays must declare a color")
			return
		}
	}

	top := g.State.DiscardTop()
	if !engine.Playable(card, top, g.State.CurrentColor, g.State.MustDraw, g.State.HouseRules) {
		reason := "card is not playable on the current pile"
		if g.State.MustDraw > 0 {
			reason = fmt.Sprintf("a forced draw of %d is pending", g.State.MustDraw)
		}
		g.rejectAction(playerID, models.ActionPlayCard, reason)
		return
	}

	// Legal: commit the play.
	hand := g.Hands[playerID]
	g.Hands[playerID] = append(hand[:handIdx], hand[handIdx+1:]...)
	g.State.DiscardPile = append(g.State.DiscardPile, card)

	eff := engine.ResolveEffect(card, g.State.Direction, g.State.MustDraw)
	g.State.Direction = eff.Direction
	g.State.MustDraw = eff.MustDraw
	skip := eff.SkipNext

	// A reverse between exactly two players acts as a skip: flipping the
	// direction alone would still hand the turn straight to the opponent.
	if card.Value == engine.ValueReverse && len(g.State.Players) == 2 {
		skip = true
	}

	g.State.CurrentColor = chosenColor

	playedCard := card
	g.fireEvent(GameEvent{
		Type: EventPlayerPlay,
		User: &EventUser{ID: playerID},
		Card: &playedCard,
	})
	g.logAction(playerID, models.ActionPlayCard, map[string]interface{}{
		"card": card, "chosenColor": chosenColor.String(),
	})

	if card.Kind == engine.KindWild {
		g.fireEvent(GameEvent{
			Type:  EventColorDeclared,
			User:  &EventUser{ID: playerID},
			Color: chosenColor.String(),
		})
	}

	switch len(g.Hands[playerID]) {
	case 0:
		g.EndGame(playerID)
		return
	case 1:
		g.fireEvent(GameEvent{Type: EventPlayerUno, User: &EventUser{ID: playerID}})
		g.logAction(playerID, string(EventPlayerUno), nil)
	}

	g.persistHand(playerID)
	g.finishTurn(skip)
}

// handleDrawCard applies a draw_card action. A pending forced draw is served
// in full and ends the turn; otherwise the player draws voluntarily and may
// still play or pass. Assumes lock is held by caller.
func (g *UnoMatch) handleDrawCard(playerID uuid.UUID) {
	if g.State.MustDraw > 0 {
		g.serveForcedDraw(playerID)
		return
	}
	if g.State.DrawnThisTurn {
		g.rejectAction(playerID, models.ActionDrawCard, "already drew this turn")
		return
	}

	if g.State.HouseRules.Has(engine.RuleDrawToMatch) {
		g.drawToMatch(playerID)
	} else {
		g.drawToHand(playerID, 1)
	}
	g.State.DrawnThisTurn = true
	g.persistHand(playerID)
	g.persistState()
	g.broadcastSyncStateToAll()
}

// drawToMatch keeps drawing until the player holds a card that is legal on
// the current pile, or the pile runs dry.
func (g *UnoMatch) drawToMatch(playerID uuid.UUID) {
	top := g.State.DiscardTop()
	for {
		drawn := g.drawToHand(playerID, 1)
		if len(drawn) == 0 {
			return // pile exhausted even after reshuffle
		}
		if engine.Playable(drawn[0], top, g.State.CurrentColor, 0, g.State.HouseRules) {
			return
		}
	}
}

// serveForcedDraw resolves an accumulated draw penalty: the player draws the
// full amount, the counter clears, and the turn passes without skipping
// anyone further. Assumes lock is held by caller.
func (g *UnoMatch) serveForcedDraw(playerID uuid.UUID) {
	count := g.State.MustDraw
	g.drawToHand(playerID, count)
	g.State.MustDraw = 0
	g.logAction(playerID, models.ActionDrawCard, map[string]interface{}{"forced": count})
	g.persistHand(playerID)
	g.finishTurn(false)
}

// handlePass applies a pass action: only legal after a voluntary draw this
// turn. Assumes lock is held by caller.
func (g *UnoMatch) handlePass(playerID uuid.UUID) {
	if g.State.MustDraw > 0 {
		g.rejectAction(playerID, models.ActionPass, "a forced draw is pending; draw first")
		return
	}
	if !g.State.DrawnThisTurn {
		g.rejectAction(playerID, models.ActionPass, "draw a card before passing")
		return
	}
	g.fireEvent(GameEvent{Type: EventPlayerPass, User: &EventUser{ID: playerID}})
	g.logAction(playerID, models.ActionPass, nil)
	g.finishTurn(false)
}

// drawToHand moves up to n cards from the draw pile into the player's hand,
// reshuffling the discard pile (minus its top card) back into the draw pile
// when it runs dry. Returns the cards actually drawn. Assumes lock is held.
func (g *UnoMatch) drawToHand(playerID uuid.UUID, n int) []engine.Card {
	drawn := make([]engine.Card, 0, n)
	for i := 0; i < n; i++ {
		if len(g.State.DrawPile) == 0 {
			g.replenishDrawPile()
			if len(g.State.DrawPile) == 0 {
				break
			}
		}
		last := len(g.State.DrawPile) - 1
		drawn = append(drawn, g.State.DrawPile[last])
		g.State.DrawPile = g.State.DrawPile[:last]
	}
	if len(drawn) == 0 {
		return drawn
	}
	g.Hands[playerID] = append(g.Hands[playerID], drawn...)

	g.fireEvent(GameEvent{
		Type:    EventPlayerDraw,
		User:    &EventUser{ID: playerID},
		Payload: map[string]interface{}{"count": len(drawn)},
	})
	g.fireEventToPlayer(playerID, GameEvent{
		Type:    EventPrivateDraw,
		User:    &EventUser{ID: playerID},
		Payload: map[string]interface{}{"cards": drawn},
	})
	g.logAction(playerID, models.ActionDrawCard, map[string]interface{}{"count": len(drawn)})
	return drawn
}

// replenishDrawPile reshuffles the spent discard pile (everything under the
// top card) back into the draw pile. The reshuffle seed is derived from the
// match seed and a reshuffle counter so replays stay deterministic.
// Assumes lock is held by caller.
func (g *UnoMatch) replenishDrawPile() {
	if len(g.State.DiscardPile) <= 1 {
		return
	}
	topIdx := len(g.State.DiscardPile) - 1
	recycled := make([]engine.Card, topIdx)
	copy(recycled, g.State.DiscardPile[:topIdx])
	g.State.DiscardPile = []engine.Card{g.State.DiscardPile[topIdx]}

	g.shuffles++
	engine.Shuffle(recycled, g.State.Seed^(g.shuffles*0x9e3779b97f4a7c15))
	g.State.DrawPile = recycled

	logrus.Infof("match %s: reshuffled %d discards into the draw pile", g.ID, len(recycled))
	g.fireEvent(GameEvent{
		Type:    EventPileReshuffle,
		Payload: map[string]interface{}{"count": len(recycled)},
	})
	g.logAction(uuid.Nil, string(EventPileReshuffle), map[string]interface{}{"count": len(recycled)})
}

// finishTurn advances the sequencer and opens the next player's turn.
// Assumes lock is held by caller.
func (g *UnoMatch) finishTurn(skip bool) {
	next, err := engine.NextIndex(len(g.State.Players), g.State.CurrentTurn, g.State.Direction, skip)
	if err != nil {
		// Only reachable through state corruption; freeze rather than guess.
		logrus.Errorf("match %s: advancing turn: %v", g.ID, err)
		return
	}
	g.State.CurrentTurn = next
	g.State.DrawnThisTurn = false
	g.TurnID++

	g.persistState()
	g.broadcastSyncStateToAll()
	g.scheduleTurnTimer()
	g.broadcastPlayerTurn()
}

// persistHand writes one player's hand record. Assumes lock is held.
func (g *UnoMatch) persistHand(playerID uuid.UUID) {
	if database.DB == nil {
		return
	}
	// Snapshot before the goroutine: the live slice mutates on the next action.
	cards := append([]engine.Card(nil), g.Hands[playerID]...)
	h := &models.Hand{MatchID: g.ID, PlayerID: playerID, Cards: cards}
	go func(h *models.Hand) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.UpsertHand(ctx, h); err != nil {
			logrus.Errorf("match %s: persisting hand for %s: %v", h.MatchID, h.PlayerID, err)
		}
	}(h)
}

// rejectAction tells the acting player why their action did not apply.
// Assumes lock is held by caller.
func (g *UnoMatch) rejectAction(playerID uuid.UUID, actionType, reason string) {
	logrus.Debugf("match %s: rejected %s from %s: %s", g.ID, actionType, playerID, reason)
	g.fireEventToPlayer(playerID, GameEvent{
		Type: EventActionRejected,
		User: &EventUser{ID: playerID},
		Payload: map[string]interface{}{
			"action": actionType,
			"reason": reason,
		},
	})
	g.logAction(playerID, string(EventActionRejected), map[string]interface{}{
		"action": actionType, "reason": reason,
	})
}

// cardFromPayload decodes the schema card object from an action payload,
// running it through the full boundary validation.
func cardFromPayload(payload map[string]interface{}) (engine.Card, error) {
	raw, exists := payload["card"]
	if !exists {
		return engine.Card{}, errors.New("payload is missing the card to play")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return engine.Card{}, fmt.Errorf("encoding card payload: %w", err)
	}
	var card engine.Card
	if err := json.Unmarshal(data, &card); err != nil {
		return engine.Card{}, fmt.Errorf("invalid card: %w", err)
	}
	return card, nil
}
