package theme

import (
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolateColor(t *testing.T) {
	assert.Equal(t, "#000000", InterpolateColor("#000000", "#ffffff", 0))
	assert.Equal(t, "#ffffff", InterpolateColor("#000000", "#ffffff", 1))
	assert.Equal(t, "#7f7f7f", InterpolateColor("#000000", "#ffffff", 0.5))
	assert.Equal(t, "#ffffff", InterpolateColor("#000000", "#ffffff", 3), "position is clamped")
}

func TestParseHexColor(t *testing.T) {
	r, g, b := ParseHexColor("#cba6f7")
	assert.Equal(t, []uint8{0xcb, 0xa6, 0xf7}, []uint8{r, g, b})

	r, g, b = ParseHexColor("nope")
	assert.Equal(t, []uint8{0, 0, 0}, []uint8{r, g, b})
}

func TestSet(t *testing.T) {
	t.Cleanup(func() { Set("reel") })

	require.True(t, Set("paper"))
	assert.Equal(t, "paper", Current().Name)
	assert.False(t, Current().IsDark)

	assert.False(t, Set("neon"))
	assert.Equal(t, "paper", Current().Name, "unknown theme keeps the current one")

	require.True(t, Set(""))
	assert.Equal(t, "reel", Current().Name)
}

func TestStylesAreCached(t *testing.T) {
	th := Reel()
	assert.Same(t, th.S(), th.S())
}

func TestApplyGradient_KeepsText(t *testing.T) {
	out := ApplyGradient("ab c\nde", "#000000", "#ffffff")
	assert.Equal(t, "ab c\nde", ansi.Strip(out))
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "", ProgressBar(0.5, 0))
	assert.Equal(t, "█████░░░░░", ansi.Strip(ProgressBar(0.5, 10)))
	assert.Equal(t, "██████████", ansi.Strip(ProgressBar(2, 10)))
	assert.Equal(t, "░░░░", ansi.Strip(ProgressBar(-1, 4)))
}
