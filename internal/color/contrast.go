// Package color validates theme colors and measures their accessibility.
package color

import (
	"math"
	"regexp"
	"strconv"
)

// MinContrastRatio is the WCAG AA threshold for normal text
const MinContrastRatio = 4.5

var hexTriplet = regexp.MustCompile(`(?i)^#?([a-f\d]{2})([a-f\d]{2})([a-f\d]{2})$`)

// HexToRGB parses a 6-digit hex color, with or without the leading '#'
func HexToRGB(hex string) (r, g, b uint8, ok bool) {
	m := hexTriplet.FindStringSubmatch(hex)
	if m == nil {
		return 0, 0, 0, false
	}
	parse := func(s string) uint8 {
		v, _ := strconv.ParseUint(s, 16, 8)
		return uint8(v)
	}
	return parse(m[1]), parse(m[2]), parse(m[3]), true
}

// Luminance calculates the relative luminance of an sRGB color per WCAG.
// Returns a value between 0 (black) and 1 (white).
func Luminance(r, g, b uint8) float64 {
	channel := func(v uint8) float64 {
		c := float64(v) / 255.0
		if c <= 0.03928 {
			return c / 12.92
		}
		return math.Pow((c+0.055)/1.055, 2.4)
	}
	return 0.2126*channel(r) + 0.7152*channel(g) + 0.0722*channel(b)
}

// ContrastRatio returns the WCAG contrast ratio between two hex colors, from 1
// (no contrast) to 21. Unparseable input yields 1.
func ContrastRatio(a, b string) float64 {
	r1, g1, b1, ok1 := HexToRGB(a)
	r2, g2, b2, ok2 := HexToRGB(b)
	if !ok1 || !ok2 {
		return 1
	}
	l1 := Luminance(r1, g1, b1)
	l2 := Luminance(r2, g2, b2)
	if l1 < l2 {
		l1, l2 = l2, l1
	}
	return (l1 + 0.05) / (l2 + 0.05)
}
