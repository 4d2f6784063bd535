package geometry

import (
	"strconv"
	"strings"
)

// Parameter names, shared with the stylesheet as --<name>.
const (
	KeyHeroLeftMargin  = "hero-left-margin"
	KeyHeroRightMargin = "hero-right-margin"
	KeyHeroLogoTop     = "hero-logo-top"
	KeyHeroHeadingTop  = "hero-heading-top"
	KeyHeroBodyTop     = "hero-body-top"
	KeyGapAfterLogo    = "gap-after-logo"
	KeyGapAfterHeading = "gap-after-heading"
	KeyLogoMax         = "logo-max-px"
	KeyLogoMin         = "logo-min-px"
	KeyLogoScale       = "logo-scale"
	KeyHeadingMax      = "heading-max-px"
	KeyHeadingMin      = "heading-min-px"
	KeyBodyMax         = "body-max-px"
	KeyBodyMin         = "body-min-px"
	KeyHeadingVW       = "heading-vw"
	KeyBodyVW          = "body-vw"
)

// Config is a flat set of named parameters as raw CSS values ("64px", "1.2").
// It is resolved once per viewport and not mutated afterwards.
type Config map[string]string

// Px parses a value the way the page reads a pixel variable: a trailing "px"
// is ignored and anything unparsable is 0.
func (c Config) Px(name string) float64 {
	return parseNumber(strings.TrimSuffix(strings.TrimSpace(c[name]), "px"))
}

// Float parses a unitless value, returning fallback when it is missing, zero
// or malformed.
func (c Config) Float(name string, fallback float64) float64 {
	if v := parseNumber(c[name]); v != 0 {
		return v
	}
	return fallback
}

// Dimensions are the typed view of a Config used by ComputeLayout.
type Dimensions struct {
	HeroLeftMargin  float64
	HeroRightMargin float64
	HeroLogoTop     float64
	HeroHeadingTop  float64
	HeroBodyTop     float64
	GapAfterLogo    float64
	GapAfterHeading float64
	LogoMax         float64
	LogoMin         float64
	LogoScale       float64
	HeadingMax      float64
	HeadingMin      float64
	BodyMax         float64
	BodyMin         float64
	HeadingVW       float64
	BodyVW          float64
}

func (c Config) Dimensions() Dimensions {
	return Dimensions{
		HeroLeftMargin:  c.Px(KeyHeroLeftMargin),
		HeroRightMargin: c.Px(KeyHeroRightMargin),
		HeroLogoTop:     c.Px(KeyHeroLogoTop),
		HeroHeadingTop:  c.Px(KeyHeroHeadingTop),
		HeroBodyTop:     c.Px(KeyHeroBodyTop),
		GapAfterLogo:    c.Px(KeyGapAfterLogo),
		GapAfterHeading: c.Px(KeyGapAfterHeading),
		LogoMax:         c.Px(KeyLogoMax),
		LogoMin:         c.Px(KeyLogoMin),
		LogoScale:       c.Float(KeyLogoScale, 1),
		HeadingMax:      c.Px(KeyHeadingMax),
		HeadingMin:      c.Px(KeyHeadingMin),
		BodyMax:         c.Px(KeyBodyMax),
		BodyMin:         c.Px(KeyBodyMin),
		HeadingVW:       c.Float(KeyHeadingVW, 0),
		BodyVW:          c.Float(KeyBodyVW, 0),
	}
}

// parseNumber accepts the longest numeric prefix, so "12.5vw" reads as 12.5.
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
scan:
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
		case (r == '-' || r == '+') && i == 0:
		default:
			break scan
		}
		end = i + 1
	}
	for end > 0 {
		if v, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return v
		}
		end--
	}
	return 0
}
