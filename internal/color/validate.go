package color

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"

	"wedding-album/internal/models"
)

var (
	ErrEmptyColor   = errors.New("color cannot be empty")
	ErrInvalidColor = errors.New("invalid color")
)

// InvalidColorError reports input that is not a CSS color expression
type InvalidColorError struct {
	Raw string
}

func (e *InvalidColorError) Error() string {
	return fmt.Sprintf("'%s' is not a valid color", e.Raw)
}

func (e *InvalidColorError) Is(target error) bool {
	return target == ErrInvalidColor
}

var (
	cssNumber   = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	cssFunction = regexp.MustCompile(`^(rgba?|hsla?)\((.*)\)$`)
	hueUnit     = regexp.MustCompile(`^(.*?)(deg|grad|rad|turn)?$`)
)

// extra keywords not covered by the SVG 1.1 table
var keywords = map[string][3]uint8{
	"rebeccapurple": {0x66, 0x33, 0x99},
	"transparent":   {0, 0, 0},
	"currentcolor":  {0, 0, 0},
}

// Validate checks that raw is a CSS color and returns it as lowercase #rrggbb.
// Alpha is dropped.
func Validate(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrEmptyColor
	}
	rgb, ok := parse(strings.ToLower(s))
	if !ok {
		return "", &InvalidColorError{Raw: s}
	}
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2]), nil
}

// Message returns the text shown next to a color field for a Validate error
func Message(err error) string {
	var invalid *InvalidColorError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyColor):
		return "Color cannot be empty."
	case errors.As(err, &invalid):
		return fmt.Sprintf("'%s' is not a valid color.", invalid.Raw)
	default:
		return err.Error()
	}
}

// CheckColors validates every theme color slot, keeping indices aligned
func CheckColors(inputs []string) []models.ColorCheckResult {
	results := make([]models.ColorCheckResult, len(inputs))
	for i, in := range inputs {
		hex, err := Validate(in)
		results[i] = models.ColorCheckResult{
			Index: i,
			Input: in,
			Hex:   hex,
			Valid: err == nil,
			Error: Message(err),
		}
	}
	return results
}

func parse(s string) ([3]uint8, bool) {
	if strings.HasPrefix(s, "#") {
		return parseHex(s[1:])
	}
	if c, ok := colornames.Map[s]; ok {
		return [3]uint8{c.R, c.G, c.B}, true
	}
	if c, ok := keywords[s]; ok {
		return c, true
	}
	m := cssFunction.FindStringSubmatch(s)
	if m == nil {
		return [3]uint8{}, false
	}
	args, ok := splitArgs(m[2])
	if !ok {
		return [3]uint8{}, false
	}
	if strings.HasPrefix(m[1], "rgb") {
		return parseRGB(args)
	}
	return parseHSL(args)
}

func parseHex(h string) ([3]uint8, bool) {
	for _, c := range h {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return [3]uint8{}, false
		}
	}
	digit := func(i int) uint8 {
		v, _ := strconv.ParseUint(h[i:i+1], 16, 8)
		return uint8(v) * 17
	}
	pair := func(i int) uint8 {
		v, _ := strconv.ParseUint(h[i:i+2], 16, 8)
		return uint8(v)
	}
	switch len(h) {
	case 3, 4:
		return [3]uint8{digit(0), digit(1), digit(2)}, true
	case 6, 8:
		return [3]uint8{pair(0), pair(2), pair(4)}, true
	}
	return [3]uint8{}, false
}

// splitArgs accepts both "a, b, c[, d]" and "a b c[ / d]"; the alpha, if any,
// is validated and dropped.
func splitArgs(body string) ([]string, bool) {
	var parts []string
	if strings.Contains(body, ",") {
		for _, p := range strings.Split(body, ",") {
			parts = append(parts, strings.TrimSpace(p))
		}
		if len(parts) == 4 {
			if !validAlpha(parts[3]) {
				return nil, false
			}
			parts = parts[:3]
		}
	} else {
		main, alpha, hasAlpha := strings.Cut(body, "/")
		if hasAlpha && !validAlpha(strings.TrimSpace(alpha)) {
			return nil, false
		}
		parts = strings.Fields(main)
	}
	if len(parts) != 3 {
		return nil, false
	}
	return parts, true
}

func validAlpha(s string) bool {
	_, ok := number(strings.TrimSuffix(s, "%"))
	return ok
}

func number(s string) (float64, bool) {
	if !cssNumber.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func parseRGB(args []string) ([3]uint8, bool) {
	var out [3]uint8
	for i, a := range args {
		var v float64
		if p, ok := strings.CutSuffix(a, "%"); ok {
			n, ok := number(p)
			if !ok {
				return out, false
			}
			v = clamp(n, 0, 100) * 255 / 100
		} else {
			n, ok := number(a)
			if !ok {
				return out, false
			}
			v = clamp(n, 0, 255)
		}
		out[i] = uint8(math.Round(v))
	}
	return out, true
}

func parseHSL(args []string) ([3]uint8, bool) {
	m := hueUnit.FindStringSubmatch(args[0])
	h, ok := number(m[1])
	if !ok {
		return [3]uint8{}, false
	}
	switch m[2] {
	case "rad":
		h = h * 180 / math.Pi
	case "grad":
		h = h * 0.9
	case "turn":
		h = h * 360
	}
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}

	var sl [2]float64
	for i, a := range args[1:] {
		n, ok := number(strings.TrimSuffix(a, "%"))
		if !ok {
			return [3]uint8{}, false
		}
		sl[i] = clamp(n, 0, 100) / 100
	}
	s, l := sl[0], sl[1]

	a := s * math.Min(l, 1-l)
	f := func(n float64) uint8 {
		k := math.Mod(n+h/30, 12)
		v := l - a*math.Max(-1, math.Min(math.Min(k-3, 9-k), 1))
		return uint8(math.Round(v * 255))
	}
	return [3]uint8{f(0), f(8), f(4)}, true
}
