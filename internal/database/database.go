// Package database is the transactional persistence boundary. The engine is
// pure; every committed action reads the latest match record, applies the
// engine functions, and writes back guarded by the record's version. A stale
// read surfaces as ErrStaleMatch and the caller retries — it is never
// silently applied.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/sleb/uno/internal/models"
)

// DB is the shared connection pool, initialized by Connect.
var DB *pgxpool.Pool

// Sentinel errors surfaced to the action-handling layer.
var (
	ErrMatchNotFound = errors.New("match not found")
	ErrHandNotFound  = errors.New("hand not found")
	ErrStaleMatch    = errors.New("match was modified concurrently")
)

// Connect opens the pool and verifies connectivity.
func Connect(ctx context.Context, databaseURL string) error {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("creating pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging database: %w", err)
	}
	DB = pool
	logrus.Info("connected to postgres")
	return nil
}

// CreateMatch inserts a fresh lobby-state match record at version 1.
func CreateMatch(ctx context.Context, m *models.Match) error {
	m.Version = 1
	state, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling match state: %w", err)
	}
	_, err = DB.Exec(ctx,
		`INSERT INTO matches (id, status, state, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, now(), now())`,
		m.ID, m.Status, state, m.Version)
	if err != nil {
		return fmt.Errorf("inserting match %s: %w", m.ID, err)
	}
	return nil
}

// GetMatch loads a match record, including its current version.
func GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	var state []byte
	var version int64
	err := DB.QueryRow(ctx,
		`SELECT state, version FROM matches WHERE id = $1`, id).Scan(&state, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading match %s: %w", id, err)
	}
	var m models.Match
	if err := json.Unmarshal(state, &m); err != nil {
		return nil, fmt.Errorf("decoding match %s: %w", id, err)
	}
	m.Version = version
	return &m, nil
}

// SaveMatch writes the match back, guarded by the version it was read at.
// On success the in-memory version is bumped to the committed one; if the
// row has moved on since the read, nothing is written and ErrStaleMatch is
// returned for the caller to retry against a fresh read.
func SaveMatch(ctx context.Context, m *models.Match) error {
	readVersion := m.Version
	m.Version = readVersion + 1
	state, err := json.Marshal(m)
	if err != nil {
		m.Version = readVersion
		return fmt.Errorf("marshaling match state: %w", err)
	}
	tag, err := DB.Exec(ctx,
		`UPDATE matches SET status = $1, state = $2, version = $3, updated_at = now()
		 WHERE id = $4 AND version = $5`,
		m.Status, state, m.Version, m.ID, readVersion)
	if err != nil {
		m.Version = readVersion
		return fmt.Errorf("updating match %s: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		m.Version = readVersion
		return ErrStaleMatch
	}
	return nil
}

// UpsertHand stores a player's hand record for a match.
func UpsertHand(ctx context.Context, h *models.Hand) error {
	cards, err := json.Marshal(h.Cards)
	if err != nil {
		return fmt.Errorf("marshaling hand: %w", err)
	}
	_, err = DB.Exec(ctx,
		`INSERT INTO hands (match_id, player_id, cards, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (match_id, player_id) DO UPDATE SET cards = $3, updated_at = now()`,
		h.MatchID, h.PlayerID, cards)
	if err != nil {
		return fmt.Errorf("upserting hand for %s in match %s: %w", h.PlayerID, h.MatchID, err)
	}
	return nil
}

// GetHand loads a player's hand record.
func GetHand(ctx context.Context, matchID, playerID uuid.UUID) (*models.Hand, error) {
	var cards []byte
	err := DB.QueryRow(ctx,
		`SELECT cards FROM hands WHERE match_id = $1 AND player_id = $2`,
		matchID, playerID).Scan(&cards)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrHandNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading hand for %s in match %s: %w", playerID, matchID, err)
	}
	h := &models.Hand{MatchID: matchID, PlayerID: playerID}
	if err := json.Unmarshal(cards, &h.Cards); err != nil {
		return nil, fmt.Errorf("decoding hand for %s in match %s: %w", playerID, matchID, err)
	}
	return h, nil
}

// CreateUser inserts a new account.
func CreateUser(ctx context.Context, u *models.User) error {
	_, err := DB.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, now())`,
		u.ID, u.Username, u.Email, u.PasswordHash)
	if err != nil {
		return fmt.Errorf("inserting user %s: %w", u.Username, err)
	}
	return nil
}

// GetUserByEmail loads an account for credential verification.
func GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := DB.QueryRow(ctx,
		`SELECT id, username, email, password_hash FROM users WHERE email = $1`,
		email).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("no user with email %s", email)
	}
	if err != nil {
		return nil, fmt.Errorf("loading user by email: %w", err)
	}
	return &u, nil
}

// StoreFinalMatchState snapshots the completed match (final hands, scores,
// winner) for replay and audit.
func StoreFinalMatchState(ctx context.Context, matchID uuid.UUID, snapshot interface{}) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshaling final snapshot: %w", err)
	}
	_, err = DB.Exec(ctx,
		`INSERT INTO match_results (match_id, snapshot, created_at) VALUES ($1, $2, now())
		 ON CONFLICT (match_id) DO UPDATE SET snapshot = $2`,
		matchID, data)
	if err != nil {
		return fmt.Errorf("storing final state for match %s: %w", matchID, err)
	}
	return nil
}
