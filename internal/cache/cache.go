// Package cache publishes per-match action history to Redis for the
// historian consumer. Publishing is fire-and-forget: gameplay never blocks
// on history.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Rdb is the shared Redis client, initialized by InitRedis. A nil client
// disables action history without affecting gameplay.
var Rdb *redis.Client

// InitRedis connects the shared client and verifies the connection.
func InitRedis(ctx context.Context, addr, password string) error {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis at %s: %w", addr, err)
	}
	Rdb = client
	logrus.Infof("connected to redis at %s", addr)
	return nil
}

// GameActionRecord is one entry in a match's action history.
type GameActionRecord struct {
	MatchID       uuid.UUID              `json:"matchId"`
	ActionIndex   int                    `json:"actionIndex"`
	ActorUserID   uuid.UUID              `json:"actorUserId"` // Nil for match-level events
	ActionType    string                 `json:"actionType"`
	ActionPayload map[string]interface{} `json:"actionPayload"`
	Timestamp     int64                  `json:"timestamp"`
}

// PublishGameAction appends the record to the match's history stream.
func PublishGameAction(ctx context.Context, rec GameActionRecord) error {
	if Rdb == nil {
		return fmt.Errorf("redis client not initialized")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling action record: %w", err)
	}
	key := "match:actions:" + rec.MatchID.String()
	if err := Rdb.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("pushing action record: %w", err)
	}
	return nil
}

// MatchActionHistory returns the full recorded history for a match, oldest
// first. Used by the replay endpoint.
func MatchActionHistory(ctx context.Context, matchID uuid.UUID) ([]GameActionRecord, error) {
	if Rdb == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}
	raw, err := Rdb.LRange(ctx, "match:actions:"+matchID.String(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading action history: %w", err)
	}
	records := make([]GameActionRecord, 0, len(raw))
	for _, item := range raw {
		var rec GameActionRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			logrus.Warnf("skipping malformed action record for match %s: %v", matchID, err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
