// Package engine implements the UNO rule core.
//
// Every function in this package is a pure mapping from explicit inputs to
// outputs: no shared state, no I/O, no suspension points. Match state is
// owned by the calling action handler, which loads it, invokes the engine,
// and commits the result atomically.
package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind discriminates the three card variants.
type Kind uint8

const (
	KindNumber Kind = iota
	KindSpecial
	KindWild
)

// Color of a card face. ColorNone is reserved for wild cards, which carry
// no color of their own.
type Color uint8

const (
	ColorNone Color = iota
	ColorRed
	ColorYellow
	ColorGreen
	ColorBlue
)

// Value identifies the card face. Values 0–9 are number faces; the named
// constants above 9 are the special and wild faces.
type Value uint8

const (
	ValueSkip Value = 10 + iota
	ValueReverse
	ValueDrawTwo
	ValueWild
	ValueWildDrawFour
)

// Card is an immutable tagged value. Equality is structural: two cards are
// the same card iff kind, color and value all match. Cards carry no identity
// beyond their value, so a hand may hold duplicates.
type Card struct {
	Kind  Kind
	Color Color
	Value Value
}

// NumberCard builds a number card. n must be in [0,9].
func NumberCard(color Color, n uint8) Card {
	return Card{Kind: KindNumber, Color: color, Value: Value(n)}
}

// SpecialCard builds a colored action card (skip, reverse or draw-two).
func SpecialCard(color Color, v Value) Card {
	return Card{Kind: KindSpecial, Color: color, Value: v}
}

// WildCard builds a wild or wild-draw-four. Wilds have no color until the
// acting player declares one, which the caller records as the match's
// active-color override, never on the card itself.
func WildCard(v Value) Card {
	return Card{Kind: KindWild, Color: ColorNone, Value: v}
}

// Direction governs turn-order traversal.
type Direction uint8

const (
	Clockwise Direction = iota
	CounterClockwise
)

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == Clockwise {
		return CounterClockwise
	}
	return Clockwise
}

func (d Direction) String() string {
	if d == CounterClockwise {
		return "counter-clockwise"
	}
	return "clockwise"
}

// MarshalJSON encodes the direction as its schema string.
func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a schema direction string.
func (d *Direction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "clockwise":
		*d = Clockwise
	case "counter-clockwise":
		*d = CounterClockwise
	default:
		return fmt.Errorf("unknown direction %q", s)
	}
	return nil
}

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindSpecial:
		return "special"
	default:
		return "wild"
	}
}

func (c Color) String() string {
	switch c {
	case ColorRed:
		return "red"
	case ColorYellow:
		return "yellow"
	case ColorGreen:
		return "green"
	case ColorBlue:
		return "blue"
	default:
		return ""
	}
}

// MarshalJSON encodes the color as its schema string; ColorNone encodes as
// null, matching the nullable currentColor field of the match record.
func (c Color) MarshalJSON() ([]byte, error) {
	if c == ColorNone {
		return []byte("null"), nil
	}
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a schema color string; null and "" map to ColorNone.
func (c *Color) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = ColorNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseColor maps a schema color string to a Color. The empty string maps to
// ColorNone (a wild card or an unset override).
func ParseColor(s string) (Color, error) {
	switch s {
	case "red":
		return ColorRed, nil
	case "yellow":
		return ColorYellow, nil
	case "green":
		return ColorGreen, nil
	case "blue":
		return ColorBlue, nil
	case "":
		return ColorNone, nil
	}
	return ColorNone, fmt.Errorf("unknown color %q", s)
}

func (v Value) String() string {
	if v <= 9 {
		return strconv.Itoa(int(v))
	}
	switch v {
	case ValueSkip:
		return "skip"
	case ValueReverse:
		return "reverse"
	case ValueDrawTwo:
		return "draw-two"
	case ValueWild:
		return "wild"
	case ValueWildDrawFour:
		return "wild-draw-four"
	}
	return fmt.Sprintf("invalid(%d)", uint8(v))
}

func (c Card) String() string {
	if c.Kind == KindWild {
		return c.Value.String()
	}
	return c.Color.String() + " " + c.Value.String()
}

// cardWire is the shared persisted shape of a card. Number values travel as
// JSON numbers, special and wild values as their face name.
type cardWire struct {
	Kind  string          `json:"kind"`
	Color string          `json:"color,omitempty"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the card in the shared schema shape.
func (c Card) MarshalJSON() ([]byte, error) {
	w := cardWire{Kind: c.Kind.String(), Color: c.Color.String()}
	if c.Kind == KindNumber {
		w.Value = json.RawMessage(strconv.Itoa(int(c.Value)))
	} else {
		v, err := json.Marshal(c.Value.String())
		if err != nil {
			return nil, err
		}
		w.Value = v
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes and validates a schema card. Values outside the
// closed variant set are rejected here, at the boundary, so internal code
// can trust every Card it sees.
func (c *Card) UnmarshalJSON(data []byte) error {
	var w cardWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	color, err := ParseColor(w.Color)
	if err != nil {
		return err
	}

	switch w.Kind {
	case "number":
		var n int
		if err := json.Unmarshal(w.Value, &n); err != nil {
			return fmt.Errorf("number card value: %w", err)
		}
		if n < 0 || n > 9 {
			return fmt.Errorf("number card value %d out of range", n)
		}
		if color == ColorNone {
			return fmt.Errorf("number card missing color")
		}
		*c = NumberCard(color, uint8(n))

	case "special":
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return fmt.Errorf("special card value: %w", err)
		}
		var v Value
		switch s {
		case "skip":
			v = ValueSkip
		case "reverse":
			v = ValueReverse
		case "draw-two":
			v = ValueDrawTwo
		default:
			return fmt.Errorf("unknown special card value %q", s)
		}
		if color == ColorNone {
			return fmt.Errorf("special card missing color")
		}
		*c = SpecialCard(color, v)

	case "wild":
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return fmt.Errorf("wild card value: %w", err)
		}
		switch s {
		case "wild":
			*c = WildCard(ValueWild)
		case "wild-draw-four":
			*c = WildCard(ValueWildDrawFour)
		default:
			return fmt.Errorf("unknown wild card value %q", s)
		}

	default:
		return fmt.Errorf("unknown card kind %q", w.Kind)
	}
	return nil
}
