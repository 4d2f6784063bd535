package geometry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStore = `
base:
  hero-left-margin: "64px"
  logo-scale: "1"
  heading-vw: "50"
overrides:
  - media: { max-width: 599 }
    values:
      hero-left-margin: "16px"
  - media: { max-width: 599, orientation: portrait }
    values:
      logo-scale: "1.5"
`

func TestStore_Resolve(t *testing.T) {
	s, err := Load(strings.NewReader(testStore))
	require.NoError(t, err)

	desktop := s.Resolve(Viewport{Width: 1200, Height: 800})
	assert.Equal(t, 64.0, desktop.Px(KeyHeroLeftMargin))
	assert.Equal(t, 1.0, desktop.Float(KeyLogoScale, 0))

	landscapePhone := s.Resolve(Viewport{Width: 580, Height: 320})
	assert.Equal(t, 16.0, landscapePhone.Px(KeyHeroLeftMargin))
	assert.Equal(t, 1.0, landscapePhone.Float(KeyLogoScale, 0))

	portraitPhone := s.Resolve(Viewport{Width: 390, Height: 844})
	assert.Equal(t, 16.0, portraitPhone.Px(KeyHeroLeftMargin))
	assert.Equal(t, 1.5, portraitPhone.Float(KeyLogoScale, 0))

	assert.Equal(t, "64px", s.Base[KeyHeroLeftMargin], "resolving does not mutate the base")
}

func TestStore_LoadRejectsUnknownOverride(t *testing.T) {
	_, err := Load(strings.NewReader(`
base:
  logo-scale: "1"
overrides:
  - media: { max-width: 500 }
    values:
      logo-scael: "2"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logo-scael")
}

func TestStore_LoadRejectsEmpty(t *testing.T) {
	_, err := Load(strings.NewReader("overrides: []\n"))
	require.Error(t, err)
}

func TestStore_WriteCSS(t *testing.T) {
	s, err := Load(strings.NewReader(testStore))
	require.NoError(t, err)

	var b strings.Builder
	require.NoError(t, s.WriteCSS(&b))
	css := b.String()

	assert.True(t, strings.HasPrefix(css, ":root {\n"))
	assert.Contains(t, css, "  --hero-left-margin: 64px;\n")
	assert.Contains(t, css, "@media (max-width: 599px) {\n  :root {\n    --hero-left-margin: 16px;\n  }\n}\n")
	assert.Contains(t, css, "@media (max-width: 599px) and (orientation: portrait) {")
	assert.Less(t, strings.Index(css, "--heading-vw"), strings.Index(css, "--hero-left-margin"), "keys are sorted")
}

func TestStore_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geometry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testStore), 0o600))

	s, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, s.Overrides, 2)

	def, err := LoadFile("")
	require.NoError(t, err)
	for _, key := range []string{
		KeyHeroLeftMargin, KeyHeroRightMargin, KeyHeroLogoTop, KeyHeroHeadingTop,
		KeyHeroBodyTop, KeyGapAfterLogo, KeyGapAfterHeading, KeyLogoMax, KeyLogoMin,
		KeyLogoScale, KeyHeadingMax, KeyHeadingMin, KeyBodyMax, KeyBodyMin,
		KeyHeadingVW, KeyBodyVW,
	} {
		assert.Contains(t, def.Base, key)
	}

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMedia_Query(t *testing.T) {
	assert.Equal(t, "all", Media{}.Query())
	assert.Equal(t, "(min-width: 600px) and (max-height: 575px) and (orientation: landscape)",
		Media{MinWidth: 600, MaxHeight: 575, Orientation: "landscape"}.Query())
}

func TestConfig_Parsing(t *testing.T) {
	cfg := Config{"a": " 12.5px ", "b": "bogus", "c": "38vw", "d": "0"}
	assert.Equal(t, 12.5, cfg.Px("a"))
	assert.Equal(t, 0.0, cfg.Px("b"))
	assert.Equal(t, 0.0, cfg.Px("missing"))
	assert.Equal(t, 38.0, cfg.Float("c", 1))
	assert.Equal(t, 1.0, cfg.Float("d", 1), "zero falls back like parseFloat(x) || 1")
	assert.Equal(t, 1.0, cfg.Float("b", 1))
}
