package compose

import (
	"errors"
	"strconv"
	"strings"
)

// Priority and visibility ranges on the platform scale.
const (
	priorityMin = -2
	priorityMax = 2

	visibilitySecret = -1
	visibilityPublic = 1
)

// parseBracketedInts parses "[100, 200, 300]" style patterns. Unparsable
// elements become zero rather than failing the whole pattern.
func parseBracketedInts(raw string) []int64 {
	s := strings.NewReplacer("[", "", "]", "").Replace(raw)
	parts := strings.Split(s, ",")
	out := make([]int64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			continue
		}
		out[i] = n
	}
	return out
}

var errOutOfRange = errors.New("out of range")

// parseRangedInt parses a decimal integer and checks it against [lo, hi].
// Range violations return errOutOfRange so callers can report them apart
// from plain parse failures.
func parseRangedInt(raw string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if n < lo || n > hi {
		return 0, errOutOfRange
	}
	return n, nil
}

var colorNames = map[string]int{
	"black":   argb(0xFF, 0x00, 0x00, 0x00),
	"white":   argb(0xFF, 0xFF, 0xFF, 0xFF),
	"red":     argb(0xFF, 0xFF, 0x00, 0x00),
	"green":   argb(0xFF, 0x00, 0xFF, 0x00),
	"blue":    argb(0xFF, 0x00, 0x00, 0xFF),
	"yellow":  argb(0xFF, 0xFF, 0xFF, 0x00),
	"cyan":    argb(0xFF, 0x00, 0xFF, 0xFF),
	"magenta": argb(0xFF, 0xFF, 0x00, 0xFF),
	"gray":    argb(0xFF, 0x88, 0x88, 0x88),
	"grey":    argb(0xFF, 0x88, 0x88, 0x88),
}

// parseColor accepts "#RRGGBB", "#AARRGGBB" and a small set of color names,
// returning an ARGB value.
func parseColor(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	if c, ok := colorNames[strings.ToLower(s)]; ok {
		return c, true
	}

	if !strings.HasPrefix(s, "#") {
		return 0, false
	}
	hex := s[1:]
	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return 0, false
	}
	switch len(hex) {
	case 6:
		return int(0xFF000000 | v), true
	case 8:
		return int(v), true
	default:
		return 0, false
	}
}

func argb(a, r, g, b int) int {
	return a<<24 | r<<16 | g<<8 | b
}
