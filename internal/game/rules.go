package game

import (
	"fmt"

	"github.com/sleb/uno/engine"
)

// Settings captures the game-time configuration a lobby hands to a match:
// the engine-facing house-rule flags plus coordinator policies like timers
// and disconnection handling.
type Settings struct {
	HouseRules          engine.HouseRules `json:"houseRules"`
	TurnTimerSec        int               `json:"turnTimerSec"`        // 0 disables the turn timer
	ForfeitOnDisconnect bool              `json:"forfeitOnDisconnect"` // if false, players can rejoin
}

// DefaultSettings returns the standard match configuration.
func DefaultSettings() Settings {
	return Settings{
		HouseRules:          engine.HouseRules{},
		TurnTimerSec:        30,
		ForfeitOnDisconnect: false,
	}
}

// Update applies lobby-provided values onto the settings. Values that are
// absent keep their previous state. House-rule names are kept verbatim even
// when unrecognized: the engine treats its rule set as open and unknown
// flags are inert, so a newer client can carry flags an older server simply
// ignores.
func (s *Settings) Update(raw map[string]interface{}) error {
	if val, exists := raw["houseRules"]; exists && val != nil {
		list, ok := val.([]interface{})
		if !ok {
			return fmt.Errorf("invalid type for houseRules")
		}
		rules := make(engine.HouseRules, 0, len(list))
		for _, item := range list {
			name, ok := item.(string)
			if !ok {
				return fmt.Errorf("house rule names must be strings")
			}
			rules = append(rules, name)
		}
		s.HouseRules = rules
	}
	if val, exists := raw["turnTimerSec"]; exists && val != nil {
		f, ok := val.(float64)
		if !ok {
			return fmt.Errorf("invalid type for turnTimerSec")
		}
		if f < 0 {
			return fmt.Errorf("turnTimerSec must be at least 0; set to 0 to disable the turn timer")
		}
		s.TurnTimerSec = int(f)
	}
	if val, exists := raw["forfeitOnDisconnect"]; exists && val != nil {
		b, ok := val.(bool)
		if !ok {
			return fmt.Errorf("invalid type for forfeitOnDisconnect")
		}
		s.ForfeitOnDisconnect = b
	}
	return nil
}
