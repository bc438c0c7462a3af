package palette

import (
	"strings"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryColorsAreDeterministic(t *testing.T) {
	for _, name := range []string{"Documents", "src", "node_modules", "Фото", ""} {
		first := ForDirectory(name)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, ForDirectory(name))
		}
		assert.Contains(t, directoryPalette, first)
	}
}

func TestFileColorsByExtension(t *testing.T) {
	assert.Equal(t, CategoryColor("Photos"), ForFile(".jpg"))
	assert.Equal(t, CategoryColor("Developer"), ForFile(".go"))
	assert.Equal(t, CategoryColor("Archives"), ForFile(".zip"))
	assert.Equal(t, ForFile(".JPG"), ForFile(".jpg"), "extension lookup is case-insensitive")
}

func TestUnknownExtensionFallback(t *testing.T) {
	got := ForFile(".zqx9")
	assert.Equal(t, got, ForFile(".zqx9"), "fallback is deterministic")
	require.True(t, strings.HasPrefix(got, "#"))

	c, err := colorful.Hex(got)
	require.NoError(t, err)
	h, s, l := c.Hsl()
	assert.GreaterOrEqual(t, h, 170.0)
	assert.LessOrEqual(t, h, 330.0)
	assert.InDelta(t, 0.55, s, 0.01)
	assert.InDelta(t, 0.55, l, 0.01)
}

func TestCategoryMapping(t *testing.T) {
	assert.Equal(t, "Documents", CategoryFor(".pdf"))
	assert.Equal(t, "Music", CategoryFor(".FLAC"))
	assert.Equal(t, "Other", CategoryFor(".whatever"))
	assert.Equal(t, "Other", CategoryFor(""))

	cats := Categories()
	assert.Equal(t, "Apps", cats[0])
	assert.Equal(t, "Other", cats[len(cats)-1])
	for _, c := range cats {
		assert.NotEmpty(t, CategoryColor(c))
	}
}

func TestBrighten(t *testing.T) {
	base := "#0984e3"
	lighter := Brighten(base, 0.3)
	assert.NotEqual(t, base, lighter)

	cb, _ := colorful.Hex(base)
	cl, err := colorful.Hex(lighter)
	require.NoError(t, err)
	_, _, lb := cb.Hsl()
	_, _, ll := cl.Hsl()
	assert.Greater(t, ll, lb)

	assert.Equal(t, "oops", Brighten("oops", 0.3), "invalid input passes through")
}
