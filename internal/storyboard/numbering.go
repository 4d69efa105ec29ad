package storyboard

import "errors"

// ErrInvalidLensNumber rejects requested lens numbers below 1. The caller
// treats it as a no-op: no frame is renumbered.
var ErrInvalidLensNumber = errors.New("lens number must be positive")

// NextLensNumber returns the number a newly staged frame should carry:
// one past the highest number currently in the store.
func NextLensNumber(frames []*Frame) int {
	max := 0
	for _, f := range frames {
		if f.LensNumber > max {
			max = f.LensNumber
		}
	}
	return max + 1
}

// Reassign gives target the requested lens number, shifting other frames as
// needed so the numbers across the store stay a dense 1..N set. The target
// may be a store member or a still-pending frame; a member's old number is
// vacated (numbers above it pull down) before the new number is claimed
// (numbers at or above it push up). The request is clamped to [1, N+1]
// where N counts the other frames in the store; N+1 means "goes at the
// end" and shifts nothing. Returns the number actually applied.
func Reassign(frames []*Frame, target *Frame, requested int) (int, error) {
	if requested <= 0 {
		return 0, ErrInvalidLensNumber
	}

	others := 0
	member := false
	for _, f := range frames {
		if f.ID == target.ID {
			member = true
			continue
		}
		others++
	}

	if member {
		old := target.LensNumber
		for _, f := range frames {
			if f.ID != target.ID && f.LensNumber > old {
				f.LensNumber--
			}
		}
	}

	applied := requested
	if applied > others+1 {
		applied = others + 1
	}

	if applied <= others {
		for _, f := range frames {
			if f.ID != target.ID && f.LensNumber >= applied {
				f.LensNumber++
			}
		}
	}

	target.LensNumber = applied
	return applied, nil
}

// compactAfterRemoval closes the gap left by a deleted frame so the
// remaining numbers are dense again.
func compactAfterRemoval(frames []*Frame, removedNumber int) {
	for _, f := range frames {
		if f.LensNumber > removedNumber {
			f.LensNumber--
		}
	}
}
