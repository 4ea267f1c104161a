package track

import (
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// HexToHue returns the HSL hue, in degrees within [0, 360), of a color code
// written as "RRGGBB" or "#RRGGBB". Malformed codes yield 0.
func HexToHue(code string) float64 {
	code = strings.TrimSpace(code)
	if !strings.HasPrefix(code, "#") {
		code = "#" + code
	}

	c, err := colorful.Hex(code)
	if err != nil {
		return 0
	}

	h, _, _ := c.Hsl()
	if h < 0 || h >= 360 {
		return 0
	}
	return h
}
