package engine

import "fmt"

// NextIndex computes the seat index acting after current. Step size is 1, or
// 2 when the next player is skipped; clockwise advances the index upward,
// counter-clockwise downward, wrapping modulo the player count.
//
// A zero player count or an out-of-range current index is a caller bug, not
// a game outcome, and is returned as an error the caller should treat as
// fatal.
//
// Note that with exactly two players this arithmetic does NOT turn a reverse
// into a skip: flipping direction and stepping once still lands on the
// opponent. The action handler enforces the classic two-player rule by
// passing skipNext for a reverse in a two-player match.
func NextIndex(playerCount, current int, dir Direction, skipNext bool) (int, error) {
	if playerCount <= 0 {
		return 0, fmt.Errorf("no players in turn order")
	}
	if current < 0 || current >= playerCount {
		return 0, fmt.Errorf("current index %d out of range (player count %d)", current, playerCount)
	}

	step := 1
	if skipNext {
		step = 2
	}
	if dir == CounterClockwise {
		step = -step
	}

	// Non-negative modulo wrap.
	next := (current + step) % playerCount
	if next < 0 {
		next += playerCount
	}
	return next, nil
}

// NextPlayer returns the identifier of the player acting after the one at
// current, given the seating order and direction.
func NextPlayer(players []string, current int, dir Direction, skipNext bool) (string, error) {
	next, err := NextIndex(len(players), current, dir, skipNext)
	if err != nil {
		return "", err
	}
	return players[next], nil
}
