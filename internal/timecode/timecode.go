// Package timecode formats and parses the display timestamps attached to
// storyboard frames. The display form is MM:SS below one hour and H:MM:SS
// from one hour up, which is also the form stored and round-tripped back
// into the video timeline for seeking.
package timecode

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidFormat = errors.New("invalid timecode format")

// placeValues are the multipliers for the components of a timecode,
// least significant first: seconds, minutes, hours.
var placeValues = [3]int{1, 60, 3600}

// Format renders a non-negative duration in seconds as MM:SS, or H:MM:SS
// once a full hour is reached. Negative input is treated as zero.
func Format(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		return "00:00"
	}

	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	if h > 0 {
		return strconv.Itoa(h) + ":" + pad2(m) + ":" + pad2(s)
	}
	return pad2(m) + ":" + pad2(s)
}

// Parse converts a MM:SS or H:MM:SS string into whole seconds. Components
// may be any width but must be bare integers; any other component count or
// a non-integer component is ErrInvalidFormat.
func Parse(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, ErrInvalidFormat
	}

	total := 0
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, ErrInvalidFormat
		}
		total += n * placeValues[len(parts)-1-i]
	}
	return total, nil
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
