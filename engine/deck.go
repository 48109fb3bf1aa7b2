package engine

// DeckSize is the size of a full UNO deck: per color one 0, two each of 1–9,
// two each of skip/reverse/draw-two, plus four wilds and four wild-draw-fours.
const DeckSize = 108

var colors = [4]Color{ColorRed, ColorYellow, ColorGreen, ColorBlue}

// NewDeck builds the full 108-card deck in canonical order.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, color := range colors {
		deck = append(deck, NumberCard(color, 0))
		for n := uint8(1); n <= 9; n++ {
			deck = append(deck, NumberCard(color, n), NumberCard(color, n))
		}
		for _, v := range [3]Value{ValueSkip, ValueReverse, ValueDrawTwo} {
			deck = append(deck, SpecialCard(color, v), SpecialCard(color, v))
		}
	}
	for i := 0; i < 4; i++ {
		deck = append(deck, WildCard(ValueWild))
	}
	for i := 0; i < 4; i++ {
		deck = append(deck, WildCard(ValueWildDrawFour))
	}
	return deck
}

// Shuffle orders the deck deterministically from the given seed using a
// Fisher-Yates pass over an xorshift64 stream. Any shuffler that maps the
// same seed to the same order is an acceptable substitute; callers persist
// only the seed.
func Shuffle(deck []Card, seed uint64) {
	rng := seed
	if rng == 0 {
		rng = 1 // xorshift can't start at 0
	}
	next := func() uint64 {
		rng ^= rng << 13
		rng ^= rng >> 7
		rng ^= rng << 17
		return rng
	}
	for i := len(deck) - 1; i > 0; i-- {
		j := int(next() % uint64(i+1))
		deck[i], deck[j] = deck[j], deck[i]
	}
}
