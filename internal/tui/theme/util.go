package theme

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
)

// InterpolateColor blends two #RRGGBB colors; pos runs from 0 (a) to 1 (b).
func InterpolateColor(colorA, colorB string, pos float64) string {
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	r1, g1, b1 := ParseHexColor(colorA)
	r2, g2, b2 := ParseHexColor(colorB)

	r := uint8(float64(r1)*(1-pos) + float64(r2)*pos)
	g := uint8(float64(g1)*(1-pos) + float64(g2)*pos)
	b := uint8(float64(b1)*(1-pos) + float64(b2)*pos)
	return FormatHexColor(r, g, b)
}

// ParseHexColor extracts RGB values from a hex color string. Malformed input
// yields black.
func ParseHexColor(hex string) (uint8, uint8, uint8) {
	hex = strings.TrimPrefix(hex, "#")

	var r, g, b uint8
	if len(hex) == 6 {
		_, _ = fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b)
	}
	return r, g, b
}

// FormatHexColor converts RGB values to a hex color string.
func FormatHexColor(r, g, b uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// ApplyGradient colors each rune of every line of text along a horizontal
// gradient from colorA to colorB. Spaces are left unstyled.
func ApplyGradient(text, colorA, colorB string) string {
	lines := strings.Split(text, "\n")
	width := 0
	for _, line := range lines {
		width = max(width, len([]rune(line)))
	}
	if width < 2 {
		width = 2
	}

	var out strings.Builder
	for i, line := range lines {
		if i > 0 {
			out.WriteByte('\n')
		}
		for col, r := range []rune(line) {
			if r == ' ' {
				out.WriteRune(r)
				continue
			}
			color := InterpolateColor(colorA, colorB, float64(col)/float64(width-1))
			out.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(string(r)))
		}
	}
	return out.String()
}

// ProgressBar renders a width-cell bar filled to ratio (0..1).
func ProgressBar(ratio float64, width int) string {
	if width <= 0 {
		return ""
	}
	ratio = min(max(ratio, 0), 1)
	filled := int(ratio*float64(width) + 0.5)

	s := Current().S()
	return s.BarFilled.Render(strings.Repeat("█", filled)) +
		s.BarEmpty.Render(strings.Repeat("░", width-filled))
}
