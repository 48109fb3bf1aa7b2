// Package game coordinates live UNO matches: it owns the mutable match
// state, validates and applies player actions through the pure rule engine,
// and fans results out to the realtime transport and persistence layers.
package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sleb/uno/engine"
	"github.com/sleb/uno/internal/cache"
	"github.com/sleb/uno/internal/database"
	"github.com/sleb/uno/internal/models"
)

// MaxPlayers is the seating limit for a single match.
const MaxPlayers = 10

// MinPlayers is the minimum seating required to start.
const MinPlayers = 2

// CardsPerPlayer is the opening hand size.
const CardsPerPlayer = 7

// OnMatchEndFunc is the callback executed when a match ends. It receives the
// match ID, the winner's ID, and the final scores.
type OnMatchEndFunc func(matchID uuid.UUID, winner uuid.UUID, scores map[uuid.UUID]int)

// UnoMatch represents one live match instance. All mutation happens under Mu;
// the engine functions themselves are pure, so a single lock per match is the
// whole concurrency story on this side of the persistence boundary.
type UnoMatch struct {
	ID uuid.UUID

	Settings Settings

	// State is the authoritative match turn state in its persisted shape.
	// Hands are kept separately, keyed by player, matching the hand records.
	State *models.Match
	Hands map[uuid.UUID][]engine.Card

	Usernames map[uuid.UUID]string
	Connected map[uuid.UUID]bool

	// Turn management.
	TurnID       int // increments each turn; stale timers check it before firing
	TurnDuration time.Duration
	turnTimer    *time.Timer
	actionIndex  int

	lastSeen map[uuid.UUID]time.Time
	shuffles uint64 // reshuffle counter, salts the seed for each re-shuffle

	Mu sync.Mutex

	// Communication callbacks, wired by the transport layer.
	BroadcastFn         func(ev GameEvent)
	BroadcastToPlayerFn func(playerID uuid.UUID, ev GameEvent)
	OnMatchEnd          OnMatchEndFunc
}

// NewUnoMatch creates a lobby-state match with the given settings.
func NewUnoMatch(settings Settings) *UnoMatch {
	id, _ := uuid.NewRandom()
	return &UnoMatch{
		ID:       id,
		Settings: settings,
		State: &models.Match{
			ID:         id,
			Status:     models.StatusLobby,
			Direction:  engine.Clockwise,
			HouseRules: settings.HouseRules,
		},
		Hands:        make(map[uuid.UUID][]engine.Card),
		Usernames:    make(map[uuid.UUID]string),
		Connected:    make(map[uuid.UUID]bool),
		lastSeen:     make(map[uuid.UUID]time.Time),
		TurnDuration: time.Duration(settings.TurnTimerSec) * time.Second,
	}
}

// AddPlayer seats a player in the lobby, or marks a known player as
// reconnected. Assumes lock is held by caller.
func (g *UnoMatch) AddPlayer(playerID uuid.UUID, username string) bool {
	for _, id := range g.State.Players {
		if id == playerID {
			g.Connected[playerID] = true
			g.lastSeen[playerID] = time.Now()
			logrus.Infof("match %s: player %s (%s) reconnected", g.ID, playerID, username)
			return true
		}
	}
	if g.State.Status != models.StatusLobby {
		logrus.Infof("match %s: player %s cannot join, match already started", g.ID, playerID)
		return false
	}
	if len(g.State.Players) >= MaxPlayers {
		logrus.Infof("match %s: player %s cannot join, match is full", g.ID, playerID)
		return false
	}
	if g.State.HostID == uuid.Nil {
		g.State.HostID = playerID
	}
	g.State.Players = append(g.State.Players, playerID)
	g.Usernames[playerID] = username
	g.Connected[playerID] = true
	g.lastSeen[playerID] = time.Now()
	g.fireEvent(GameEvent{
		Type: EventPlayerJoined,
		User: &EventUser{ID: playerID},
		Payload: map[string]interface{}{
			"username":    username,
			"playerCount": len(g.State.Players),
		},
	})
	g.logAction(playerID, string(EventPlayerJoined), map[string]interface{}{"username": username})
	return true
}

// Start deals the match from the given seed and begins the first turn.
// Assumes lock is held by caller.
func (g *UnoMatch) Start(seed uint64) error {
	if g.State.Status != models.StatusLobby {
		return ErrAlreadyStarted
	}
	if len(g.State.Players) < MinPlayers {
		return ErrNotEnoughPlayers
	}

	g.State.Seed = seed
	g.deal(seed)
	g.State.Status = models.StatusInProgress
	g.State.CurrentTurn = 0
	g.State.Direction = engine.Clockwise
	g.State.MustDraw = 0
	g.State.CurrentColor = engine.ColorNone
	g.State.DrawnThisTurn = false

	logrus.Infof("match %s: started with %d players, seed %d", g.ID, len(g.State.Players), seed)
	g.logAction(uuid.Nil, string(EventMatchStart), map[string]interface{}{
		"players": len(g.State.Players),
	})

	g.fireEvent(GameEvent{
		Type: EventMatchStart,
		Payload: map[string]interface{}{
			"players":    playerIDStrings(g.State.Players),
			"discardTop": g.State.DiscardTop(),
		},
	})
	g.persistState()
	g.persistHands()
	g.broadcastSyncStateToAll()

	g.scheduleTurnTimer()
	g.broadcastPlayerTurn()
	return nil
}

// deal builds and shuffles the deck, gives every player their opening hand,
// and flips the first discard. Wilds may not open the discard pile: no one
// declared a color for them, so they would constrain the opening play to
// other wilds. Any wild flipped here goes back under the pile and the next
// card is flipped instead.
func (g *UnoMatch) deal(seed uint64) {
	deck := engine.NewDeck()
	engine.Shuffle(deck, seed)

	for _, playerID := range g.State.Players {
		hand := make([]engine.Card, CardsPerPlayer)
		copy(hand, deck[:CardsPerPlayer])
		deck = deck[CardsPerPlayer:]
		g.Hands[playerID] = hand
	}

	for deck[len(deck)-1].Kind == engine.KindWild {
		top := deck[len(deck)-1]
		deck = append([]engine.Card{top}, deck[:len(deck)-1]...)
	}

	top := deck[len(deck)-1]
	g.State.DrawPile = deck[:len(deck)-1]
	g.State.DiscardPile = []engine.Card{top}
}

// countConnected returns how many seated players are currently connected.
// Assumes lock is held by caller.
func (g *UnoMatch) countConnected() int {
	count := 0
	for _, id := range g.State.Players {
		if g.Connected[id] {
			count++
		}
	}
	return count
}

// HandleDisconnect marks a player disconnected. Under the forfeit policy a
// match with one remaining player ends immediately in their favor; otherwise
// a disconnected current player's turn is timed out as usual.
// Assumes lock is held by caller.
func (g *UnoMatch) HandleDisconnect(playerID uuid.UUID) {
	if !g.Connected[playerID] {
		return
	}
	g.Connected[playerID] = false
	logrus.Infof("match %s: player %s disconnected", g.ID, playerID)
	g.logAction(playerID, string(EventPlayerLeft), nil)
	g.fireEvent(GameEvent{Type: EventPlayerLeft, User: &EventUser{ID: playerID}})

	if g.State.Status != models.StatusInProgress {
		return
	}
	if g.Settings.ForfeitOnDisconnect && g.countConnected() == 1 {
		var lastStanding uuid.UUID
		for _, id := range g.State.Players {
			if g.Connected[id] {
				lastStanding = id
				break
			}
		}
		logrus.Infof("match %s: forfeit leaves %s as the last player, ending match", g.ID, lastStanding)
		g.EndGame(lastStanding)
		return
	}
	g.broadcastSyncStateToAll()
}

// HandleReconnect marks a player connected again and sends them a fresh
// state sync. Assumes lock is held by caller.
func (g *UnoMatch) HandleReconnect(playerID uuid.UUID) {
	seated := false
	for _, id := range g.State.Players {
		if id == playerID {
			seated = true
			break
		}
	}
	if !seated {
		logrus.Infof("match %s: reconnecting player %s is not seated here", g.ID, playerID)
		return
	}
	g.Connected[playerID] = true
	g.lastSeen[playerID] = time.Now()
	g.sendSyncState(playerID)
	g.broadcastSyncStateToAll()
	if g.State.Status == models.StatusInProgress && g.State.CurrentPlayerID() == playerID {
		g.scheduleTurnTimer()
	}
}

// EndGame finalizes the match: losers score their remaining hands, the
// winner scores zero, results are broadcast and persisted, and the end
// callback fires. Assumes lock is held by caller.
func (g *UnoMatch) EndGame(winnerID uuid.UUID) {
	if g.State.Status == models.StatusCompleted {
		return
	}
	g.State.Status = models.StatusCompleted
	g.State.WinnerID = winnerID
	g.stopTurnTimer()

	scores := make(map[uuid.UUID]int)
	g.State.Scores = make(map[string]int)
	for _, playerID := range g.State.Players {
		score := 0
		if playerID != winnerID {
			score = engine.HandScore(g.Hands[playerID])
		}
		scores[playerID] = score
		g.State.Scores[playerID.String()] = score
	}

	logrus.Infof("match %s: ended, winner %s, scores %v", g.ID, winnerID, g.State.Scores)
	g.logAction(uuid.Nil, string(EventMatchEnd), map[string]interface{}{
		"winner": winnerID.String(),
		"scores": g.State.Scores,
	})

	g.fireEvent(GameEvent{
		Type: EventMatchEnd,
		User: &EventUser{ID: winnerID},
		Payload: map[string]interface{}{
			"winner": winnerID.String(),
			"scores": g.State.Scores,
		},
	})

	g.persistState()
	g.persistHands()
	g.persistFinalState(winnerID)

	if g.OnMatchEnd != nil {
		g.OnMatchEnd(g.ID, winnerID, scores)
	}
}

// persistFinalState snapshots the completed match for replay and audit.
// Assumes lock is held by caller.
func (g *UnoMatch) persistFinalState(winnerID uuid.UUID) {
	if database.DB == nil {
		return
	}
	type finalPlayerState struct {
		Hand  []engine.Card `json:"hand"`
		Score int           `json:"score"`
	}
	snapshot := map[string]interface{}{
		"winner":  winnerID.String(),
		"players": map[string]finalPlayerState{},
	}
	states := snapshot["players"].(map[string]finalPlayerState)
	for _, playerID := range g.State.Players {
		states[playerID.String()] = finalPlayerState{
			// Copied: the snapshot is marshaled in a goroutine after the lock
			// is released.
			Hand:  append([]engine.Card(nil), g.Hands[playerID]...),
			Score: g.State.Scores[playerID.String()],
		}
	}
	matchID := g.ID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.StoreFinalMatchState(ctx, matchID, snapshot); err != nil {
			logrus.Errorf("match %s: storing final state: %v", matchID, err)
		}
	}()
}

// persistState commits the match record through the versioned store. A stale
// write means another writer got there first; the in-memory state is
// refreshed from the store rather than clobbering the newer commit.
// Assumes lock is held by caller.
func (g *UnoMatch) persistState() {
	if database.DB == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := database.SaveMatch(ctx, g.State)
	if err == database.ErrStaleMatch {
		logrus.Warnf("match %s: stale commit rejected, reloading", g.ID)
		fresh, loadErr := database.GetMatch(ctx, g.ID)
		if loadErr != nil {
			logrus.Errorf("match %s: reload after stale commit: %v", g.ID, loadErr)
			return
		}
		g.State = fresh
		g.broadcastSyncStateToAll()
		return
	}
	if err != nil {
		logrus.Errorf("match %s: persisting state: %v", g.ID, err)
	}
}

// persistHands writes every player's hand record. Assumes lock is held.
func (g *UnoMatch) persistHands() {
	if database.DB == nil {
		return
	}
	for _, playerID := range g.State.Players {
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
}

// fireEvent broadcasts an event to all connected players.
// Assumes lock is held by caller.
func (g *UnoMatch) fireEvent(ev GameEvent) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	}
}

// fireEventToPlayer sends an event to a single connected player.
// Assumes lock is held by caller.
func (g *UnoMatch) fireEventToPlayer(playerID uuid.UUID, ev GameEvent) {
	if g.BroadcastToPlayerFn != nil && g.Connected[playerID] {
		g.BroadcastToPlayerFn(playerID, ev)
	}
}

// broadcastPlayerTurn announces the current player's turn.
// Assumes lock is held by caller.
func (g *UnoMatch) broadcastPlayerTurn() {
	if g.State.Status != models.StatusInProgress {
		return
	}
	current := g.State.CurrentPlayerID()
	g.fireEvent(GameEvent{
		Type: EventPlayerTurn,
		User: &EventUser{ID: current},
		Payload: map[string]interface{}{
			"turn":     g.TurnID,
			"mustDraw": g.State.MustDraw,
		},
	})
	g.logAction(current, string(EventPlayerTurn), map[string]interface{}{"turn": g.TurnID})
}

// scheduleTurnTimer arms the per-turn timeout for the current player. A
// fired timer only acts if the turn it was armed for is still the live one.
// Assumes lock is held by caller.
func (g *UnoMatch) scheduleTurnTimer() {
	g.stopTurnTimer()
	if g.TurnDuration <= 0 || g.State.Status != models.StatusInProgress {
		return
	}
	armedTurn := g.TurnID
	playerID := g.State.CurrentPlayerID()
	g.turnTimer = time.AfterFunc(g.TurnDuration, func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		if g.State.Status != models.StatusInProgress || g.TurnID != armedTurn {
			return
		}
		logrus.Infof("match %s: turn %d timed out for player %s", g.ID, armedTurn, playerID)
		g.handleTimeout(playerID)
	})
}

// stopTurnTimer cancels any armed turn timer. Assumes lock is held.
func (g *UnoMatch) stopTurnTimer() {
	if g.turnTimer != nil {
		g.turnTimer.Stop()
		g.turnTimer = nil
	}
}

// handleTimeout resolves an expired turn: any outstanding forced draw is
// served, otherwise the player draws once and passes.
// Assumes lock is held by caller.
func (g *UnoMatch) handleTimeout(playerID uuid.UUID) {
	g.logAction(playerID, "player_timeout", map[string]interface{}{"turn": g.TurnID})
	if g.State.MustDraw > 0 {
		g.serveForcedDraw(playerID)
		return
	}
	if !g.State.DrawnThisTurn {
		g.drawToHand(playerID, 1)
	}
	g.finishTurn(false)
}

// logAction appends the action to the match's Redis history. Fire-and-forget
// with a short timeout; gameplay never blocks on history.
// Assumes lock is held by caller.
func (g *UnoMatch) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.GameActionRecord{
		MatchID:       g.ID,
		ActionIndex:   g.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func(rec cache.GameActionRecord) {
		if cache.Rdb == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishGameAction(ctx, rec); err != nil {
			logrus.Errorf("match %s: publishing action %d (%s): %v",
				rec.MatchID, rec.ActionIndex, rec.ActionType, err)
		}
	}(record)
}

func playerIDStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
