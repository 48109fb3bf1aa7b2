package game

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sleb/uno/engine"
	"github.com/sleb/uno/internal/models"
)

// recorder captures broadcast and per-player events for assertions.
type recorder struct {
	public  []GameEvent
	private map[uuid.UUID][]GameEvent
}

func newRecorder() *recorder {
	return &recorder{private: make(map[uuid.UUID][]GameEvent)}
}

func (r *recorder) wire(g *UnoMatch) {
	g.BroadcastFn = func(ev GameEvent) {
		r.public = append(r.public, ev)
	}
	g.BroadcastToPlayerFn = func(playerID uuid.UUID, ev GameEvent) {
		r.private[playerID] = append(r.private[playerID], ev)
	}
}

func (r *recorder) hasPublic(t GameEventType) bool {
	for _, ev := range r.public {
		if ev.Type == t {
			return true
		}
	}
	return false
}

func (r *recorder) lastRejection(playerID uuid.UUID) string {
	events := r.private[playerID]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == EventActionRejected {
			reason, _ := events[i].Payload["reason"].(string)
			return reason
		}
	}
	return ""
}

// newTestMatch seats n players and returns the match mid-game with empty
// hands and piles, ready for tests to stage exact states. Timers are off.
func newTestMatch(t *testing.T, n int, rules engine.HouseRules) (*UnoMatch, []uuid.UUID, *recorder) {
	t.Helper()
	settings := DefaultSettings()
	settings.TurnTimerSec = 0
	settings.HouseRules = rules

	g := NewUnoMatch(settings)
	rec := newRecorder()
	rec.wire(g)

	players := make([]uuid.UUID, n)
	g.Mu.Lock()
	for i := range players {
		players[i] = uuid.New()
		require.True(t, g.AddPlayer(players[i], fmt.Sprintf("player%d", i)))
	}
	g.State.Status = models.StatusInProgress
	g.State.HouseRules = rules
	g.State.Seed = 42
	g.Mu.Unlock()

	rec.public = nil // drop the join events
	return g, players, rec
}

func stage(g *UnoMatch, top engine.Card, hands map[uuid.UUID][]engine.Card) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.State.DiscardPile = []engine.Card{top}
	for id, hand := range hands {
		g.Hands[id] = hand
	}
}

func playCard(g *UnoMatch, playerID uuid.UUID, card engine.Card, chosenColor string) {
	// The card goes through the payload as its schema shape; cardFromPayload
	// re-encodes it, so handing over the struct exercises the same path.
	payload := map[string]interface{}{"card": card}
	if chosenColor != "" {
		payload["chosenColor"] = chosenColor
	}
	g.HandlePlayerAction(playerID, models.GameAction{
		ActionType: models.ActionPlayCard,
		Payload:    payload,
	})
}

func TestStartDealsSevenToEachPlayer(t *testing.T) {
	g, players, rec := newTestMatch(t, 3, nil)
	g.Mu.Lock()
	g.State.Status = models.StatusLobby
	err := g.Start(7)
	g.Mu.Unlock()
	require.NoError(t, err)

	for _, id := range players {
		assert.Len(t, g.Hands[id], CardsPerPlayer)
	}
	assert.Len(t, g.State.DiscardPile, 1)
	assert.NotEqual(t, engine.KindWild, g.State.DiscardTop().Kind,
		"a wild may not open the discard pile")
	assert.Equal(t, engine.DeckSize-3*CardsPerPlayer-1, len(g.State.DrawPile),
		"cycling wilds to the bottom conserves the pile")
	assert.True(t, rec.hasPublic(EventMatchStart))
	assert.True(t, rec.hasPublic(EventPlayerTurn))
	assert.Equal(t, models.StatusInProgress, g.State.Status)
}

func TestStartRequiresTwoPlayers(t *testing.T) {
	settings := DefaultSettings()
	settings.TurnTimerSec = 0
	g := NewUnoMatch(settings)
	g.Mu.Lock()
	g.AddPlayer(uuid.New(), "solo")
	err := g.Start(1)
	g.Mu.Unlock()
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)
}

func TestStartTwiceFails(t *testing.T) {
	g, _, _ := newTestMatch(t, 2, nil)
	g.Mu.Lock()
	err := g.Start(1)
	g.Mu.Unlock()
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestStartConservesAllCards(t *testing.T) {
	g, players, _ := newTestMatch(t, 4, nil)
	g.Mu.Lock()
	g.State.Status = models.StatusLobby
	require.NoError(t, g.Start(99))
	g.Mu.Unlock()

	total := len(g.State.DrawPile) + len(g.State.DiscardPile)
	for _, id := range players {
		total += len(g.Hands[id])
	}
	assert.Equal(t, engine.DeckSize, total)
}

func TestDisconnectForfeitEndsMatch(t *testing.T) {
	g, players, rec := newTestMatch(t, 2, nil)
	g.Settings.ForfeitOnDisconnect = true
	stage(g, engine.NumberCard(engine.ColorRed, 5), map[uuid.UUID][]engine.Card{
		players[0]: {engine.NumberCard(engine.ColorRed, 1)},
		players[1]: {engine.NumberCard(engine.ColorBlue, 9)},
	})

	var endedWinner uuid.UUID
	g.OnMatchEnd = func(matchID, winner uuid.UUID, scores map[uuid.UUID]int) {
		endedWinner = winner
	}

	g.Mu.Lock()
	g.HandleDisconnect(players[1])
	g.Mu.Unlock()

	assert.Equal(t, models.StatusCompleted, g.State.Status)
	assert.Equal(t, players[0], endedWinner)
	assert.True(t, rec.hasPublic(EventMatchEnd))
}

func TestDisconnectWithoutForfeitKeepsMatchRunning(t *testing.T) {
	g, players, _ := newTestMatch(t, 3, nil)
	stage(g, engine.NumberCard(engine.ColorRed, 5), map[uuid.UUID][]engine.Card{
		players[0]: {engine.NumberCard(engine.ColorRed, 1)},
		players[1]: {engine.NumberCard(engine.ColorBlue, 9)},
		players[2]: {engine.NumberCard(engine.ColorGreen, 3)},
	})

	g.Mu.Lock()
	g.HandleDisconnect(players[1])
	g.Mu.Unlock()

	assert.Equal(t, models.StatusInProgress, g.State.Status)
	assert.False(t, g.Connected[players[1]])

	g.Mu.Lock()
	g.HandleReconnect(players[1])
	g.Mu.Unlock()
	assert.True(t, g.Connected[players[1]])
}

func TestEndGameScoresLosersHands(t *testing.T) {
	g, players, _ := newTestMatch(t, 3, nil)
	stage(g, engine.NumberCard(engine.ColorRed, 5), map[uuid.UUID][]engine.Card{
		players[0]: {},
		players[1]: {engine.NumberCard(engine.ColorBlue, 9), engine.SpecialCard(engine.ColorRed, engine.ValueSkip)},
		players[2]: {engine.WildCard(engine.ValueWild)},
	})

	g.Mu.Lock()
	g.EndGame(players[0])
	g.Mu.Unlock()

	assert.Equal(t, 0, g.State.Scores[players[0].String()])
	assert.Equal(t, 29, g.State.Scores[players[1].String()])
	assert.Equal(t, 50, g.State.Scores[players[2].String()])
	assert.Equal(t, players[0], g.State.WinnerID)
}

func TestSyncStateHidesOtherHands(t *testing.T) {
	g, players, _ := newTestMatch(t, 2, nil)
	stage(g, engine.NumberCard(engine.ColorRed, 5), map[uuid.UUID][]engine.Card{
		players[0]: {engine.NumberCard(engine.ColorRed, 1), engine.NumberCard(engine.ColorRed, 2)},
		players[1]: {engine.NumberCard(engine.ColorBlue, 9)},
	})

	g.Mu.Lock()
	view := g.BuildSyncState(players[0])
	g.Mu.Unlock()

	require.Len(t, view.Players, 2)
	assert.Len(t, view.Players[0].Hand, 2, "observer sees their own cards")
	assert.Equal(t, 2, view.Players[0].HandCount)
	assert.Nil(t, view.Players[1].Hand, "opponent cards are hidden")
	assert.Equal(t, 1, view.Players[1].HandCount)
	require.NotNil(t, view.DiscardTop)
	assert.Equal(t, engine.NumberCard(engine.ColorRed, 5), *view.DiscardTop)
	assert.Equal(t, players[0], view.CurrentPlayer)
}

func TestSyncStateIsolatedFromLaterPlays(t *testing.T) {
	g, players, _ := newTestMatch(t, 2, nil)
	played := engine.NumberCard(engine.ColorRed, 1)
	stage(g, engine.NumberCard(engine.ColorRed, 5), map[uuid.UUID][]engine.Card{
		players[0]: {played, engine.NumberCard(engine.ColorBlue, 2), engine.NumberCard(engine.ColorGreen, 3)},
		players[1]: {engine.NumberCard(engine.ColorYellow, 7)},
	})

	g.Mu.Lock()
	view := g.BuildSyncState(players[0])
	g.Mu.Unlock()

	// Views are queued for delivery and marshaled after the lock is gone, so
	// a play landing in between must not reach into an already-built view.
	playCard(g, players[0], played, "")

	want := []engine.Card{
		played,
		engine.NumberCard(engine.ColorBlue, 2),
		engine.NumberCard(engine.ColorGreen, 3),
	}
	assert.Equal(t, want, view.Players[0].Hand, "earlier view must not see the later play")
	assert.Len(t, g.Hands[players[0]], 2)
}

func TestAddPlayerLimits(t *testing.T) {
	settings := DefaultSettings()
	g := NewUnoMatch(settings)
	g.Mu.Lock()
	defer g.Mu.Unlock()

	ids := make([]uuid.UUID, 0, MaxPlayers)
	for i := 0; i < MaxPlayers; i++ {
		id := uuid.New()
		ids = append(ids, id)
		require.True(t, g.AddPlayer(id, fmt.Sprintf("p%d", i)))
	}
	assert.False(t, g.AddPlayer(uuid.New(), "overflow"), "table is full")
	assert.True(t, g.AddPlayer(ids[3], "p3"), "seated player may rejoin")
	assert.Equal(t, ids[0], g.State.HostID, "first player hosts")
}
