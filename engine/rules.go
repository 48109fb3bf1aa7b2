package engine

// Recognized house-rule flags. Only stacking and draw-to-match have resolved
// behavior today; the remaining names are reserved so lobby configuration
// can carry them without the engine choking, and callers must not assume
// they are enforced.
const (
	RuleStacking     = "stacking"     // answer a forced draw with another draw card
	RuleDrawToMatch  = "drawToMatch"  // keep drawing until a playable card appears
	RuleJumpIn       = "jumpIn"       // reserved
	RuleSevenSwap    = "sevenSwap"    // reserved
	RuleZeroRotation = "zeroRotation" // reserved
)

// HouseRules is the set of enabled rule flags for a match. The set is open:
// membership of unrecognized flags is simply never consulted, so unknown
// names are inert rather than an error.
type HouseRules []string

// Has reports whether the named flag is enabled.
func (r HouseRules) Has(flag string) bool {
	for _, f := range r {
		if f == flag {
			return true
		}
	}
	return false
}
