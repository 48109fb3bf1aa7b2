package engine

import "testing"

var seats = []string{"A", "B", "C"}

func TestNextPlayerClockwise(t *testing.T) {
	got, err := NextPlayer(seats, 0, Clockwise, false)
	if err != nil {
		t.Fatalf("NextPlayer: %v", err)
	}
	if got != "B" {
		t.Errorf("expected B, got %s", got)
	}
}

func TestNextPlayerClockwiseSkip(t *testing.T) {
	got, err := NextPlayer(seats, 0, Clockwise, true)
	if err != nil {
		t.Fatalf("NextPlayer: %v", err)
	}
	if got != "C" {
		t.Errorf("expected C, got %s", got)
	}
}

func TestNextPlayerCounterClockwiseWraps(t *testing.T) {
	got, err := NextPlayer(seats, 0, CounterClockwise, false)
	if err != nil {
		t.Fatalf("NextPlayer: %v", err)
	}
	if got != "C" {
		t.Errorf("expected C (wrap below zero), got %s", got)
	}
}

func TestNextPlayerCounterClockwiseSkipWraps(t *testing.T) {
	got, err := NextPlayer(seats, 1, CounterClockwise, true)
	if err != nil {
		t.Fatalf("NextPlayer: %v", err)
	}
	if got != "C" {
		t.Errorf("expected C (1 - 2 wraps to 2), got %s", got)
	}
}

func TestNextIndexWrapTable(t *testing.T) {
	cases := []struct {
		count, current int
		dir            Direction
		skip           bool
		want           int
	}{
		{3, 2, Clockwise, false, 0},
		{3, 2, Clockwise, true, 1},
		{3, 0, CounterClockwise, true, 1},
		{4, 3, Clockwise, true, 1},
		{2, 0, Clockwise, false, 1},
		{2, 0, CounterClockwise, false, 1},
		{2, 1, Clockwise, true, 1},
	}
	for _, tc := range cases {
		got, err := NextIndex(tc.count, tc.current, tc.dir, tc.skip)
		if err != nil {
			t.Fatalf("NextIndex(%d,%d,%v,%v): %v", tc.count, tc.current, tc.dir, tc.skip, err)
		}
		if got != tc.want {
			t.Errorf("NextIndex(%d,%d,%v,%v) = %d, want %d", tc.count, tc.current, tc.dir, tc.skip, got, tc.want)
		}
	}
}

// TestTwoPlayerReverseNeedsExplicitSkip pins down why the coordinator sets
// skipNext for a reverse in a two-player match: flipping direction and
// stepping once still reaches the opponent, so the modular arithmetic alone
// does not reproduce the classic rule. With skipNext the turn stays with the
// player who reversed.
func TestTwoPlayerReverseNeedsExplicitSkip(t *testing.T) {
	two := []string{"A", "B"}

	flipped := Clockwise.Flip()
	got, err := NextPlayer(two, 0, flipped, false)
	if err != nil {
		t.Fatalf("NextPlayer: %v", err)
	}
	if got != "B" {
		t.Errorf("without skip, reversed step lands on opponent, got %s", got)
	}

	got, err = NextPlayer(two, 0, flipped, true)
	if err != nil {
		t.Fatalf("NextPlayer: %v", err)
	}
	if got != "A" {
		t.Errorf("with skip, reverse keeps the turn, got %s", got)
	}
}

func TestNextPlayerEmptyPlayersFails(t *testing.T) {
	if _, err := NextPlayer(nil, 0, Clockwise, false); err == nil {
		t.Error("empty player list must be rejected")
	}
}

func TestNextPlayerIndexOutOfRangeFails(t *testing.T) {
	if _, err := NextPlayer(seats, 3, Clockwise, false); err == nil {
		t.Error("out-of-range index must be rejected")
	}
	if _, err := NextPlayer(seats, -1, Clockwise, false); err == nil {
		t.Error("negative index must be rejected")
	}
}
