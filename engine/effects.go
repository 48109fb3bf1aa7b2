package engine

// Effect is the state delta implied by an accepted play: the direction going
// forward, the accumulated forced-draw count, and whether the next player in
// order loses their turn.
type Effect struct {
	Direction Direction
	MustDraw  int
	SkipNext  bool
}

// ResolveEffect computes the effect of playing card with the given direction
// and outstanding forced-draw count. Pure and total: every input combination
// has a defined result.
//
// Skip marks the next player skipped. Reverse flips the direction flag only;
// the two-player "reverse acts as skip" rule is seating-dependent and is
// applied by the caller, not here. Draw-two and wild-draw-four accumulate
// onto mustDraw rather than replacing it, which is what makes stacking
// chains add up. A plain wild has no intrinsic effect: the declared color is
// a side input the caller records as the active-color override.
func ResolveEffect(card Card, dir Direction, mustDraw int) Effect {
	eff := Effect{Direction: dir, MustDraw: mustDraw}
	switch card.Value {
	case ValueSkip:
		eff.SkipNext = true
	case ValueReverse:
		eff.Direction = dir.Flip()
	case ValueDrawTwo:
		eff.MustDraw += 2
	case ValueWildDrawFour:
		eff.MustDraw += 4
	}
	return eff
}
