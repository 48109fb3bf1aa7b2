package engine

// DrawInducing reports whether playing this card adds to the next player's
// forced-draw obligation. The classification is shared between the legality
// check and the effect resolver.
func DrawInducing(c Card) bool {
	return c.Value == ValueDrawTwo || c.Value == ValueWildDrawFour
}

// ActiveColor returns the color a play must match: the override when a wild
// declaration is in effect, otherwise the discard top's own color. A wild on
// top with no declared override constrains nothing (ColorNone).
func ActiveColor(top Card, override Color) Color {
	if override != ColorNone {
		return override
	}
	return top.Color
}

// Playable decides whether card may legally be played on top given the
// active color override, the outstanding forced-draw count, and the match's
// house rules.
//
// With a forced draw outstanding, the only legal answer is another
// draw-inducing card, and only under the "stacking" house rule; every other
// card is refused and the player must draw. Wilds are otherwise always
// playable. Colored cards play on a matching color or a matching face value
// (skip on skip, reverse on reverse, same number regardless of color).
//
// An illegal play is an expected outcome, not a fault: the function reports
// it as false and never errors.
func Playable(card, top Card, override Color, mustDraw int, rules HouseRules) bool {
	if mustDraw > 0 {
		return rules.Has(RuleStacking) && DrawInducing(card)
	}
	if card.Kind == KindWild {
		return true
	}
	active := ActiveColor(top, override)
	if active != ColorNone && card.Color == active {
		return true
	}
	return card.Value == top.Value
}
