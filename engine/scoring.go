package engine

// Card point values for end-of-game scoring and per-card costs.
const (
	specialCardScore = 20
	wildCardScore    = 50
)

// CardScore returns the point value of a single card: number cards score
// their face value, colored action cards a flat 20, wilds a flat 50.
func CardScore(c Card) int {
	switch c.Kind {
	case KindNumber:
		return int(c.Value)
	case KindSpecial:
		return specialCardScore
	default:
		return wildCardScore
	}
}

// HandScore returns the total point value of a hand. An empty hand scores 0.
func HandScore(cards []Card) int {
	total := 0
	for _, c := range cards {
		total += CardScore(c)
	}
	return total
}

// IsSpecialCard reports whether the card is anything other than a plain
// number card. Callers use this to decide whether a play triggers side
// effects beyond the basic color/value match.
func IsSpecialCard(c Card) bool {
	return c.Kind != KindNumber
}
