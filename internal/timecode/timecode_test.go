package timecode

import (
	"errors"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    string
	}{
		{name: "zero", seconds: 0, want: "00:00"},
		{name: "under a minute", seconds: 7, want: "00:07"},
		{name: "minutes", seconds: 754, want: "12:34"},
		{name: "last second before an hour", seconds: 3599, want: "59:59"},
		{name: "exactly one hour", seconds: 3600, want: "1:00:00"},
		{name: "hours", seconds: 4921, want: "1:22:01"},
		{name: "two digit hours", seconds: 359999, want: "99:59:59"},
		{name: "negative clamps to zero", seconds: -5, want: "00:00"},
		{name: "fractional truncates", seconds: 61.9, want: "01:01"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Format(tc.seconds); got != tc.want {
				t.Fatalf("Format(%v) = %q, want %q", tc.seconds, got, tc.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"00:00", 0},
		{"00:07", 7},
		{"12:34", 754},
		{"59:59", 3599},
		{"1:00:00", 3600},
		{"1:22:01", 4921},
		{"99:59:59", 359999},
		{"0:00:05", 5},
		{"5:3", 303}, // bare integers, no fixed width
	}

	for _, tc := range tests {
		got, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Parse(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	inputs := []string{"", "12", "1:2:3:4", "aa:bb", "1:xx", "12:", ":12", "1.5:00", "-1:00"}

	for _, in := range inputs {
		if _, err := Parse(in); !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("Parse(%q) error = %v, want ErrInvalidFormat", in, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	// Every integer second up to 99:59:59 must survive format -> parse.
	for s := 0; s <= 359999; s++ {
		formatted := Format(float64(s))
		parsed, err := Parse(formatted)
		if err != nil {
			t.Fatalf("Parse(Format(%d)) error = %v", s, err)
		}
		if parsed != s {
			t.Fatalf("Parse(Format(%d)) = %d", s, parsed)
		}
	}
}
