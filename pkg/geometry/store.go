package geometry

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Media is a media-query-like condition. Zero fields are unconstrained.
type Media struct {
	MinWidth    int    `yaml:"min-width,omitempty"`
	MaxWidth    int    `yaml:"max-width,omitempty"`
	MinHeight   int    `yaml:"min-height,omitempty"`
	MaxHeight   int    `yaml:"max-height,omitempty"`
	Orientation string `yaml:"orientation,omitempty"`
}

// Matches reports whether vp satisfies every set bound.
func (m Media) Matches(vp Viewport) bool {
	if m.MinWidth > 0 && vp.Width < m.MinWidth {
		return false
	}
	if m.MaxWidth > 0 && vp.Width > m.MaxWidth {
		return false
	}
	if m.MinHeight > 0 && vp.Height < m.MinHeight {
		return false
	}
	if m.MaxHeight > 0 && vp.Height > m.MaxHeight {
		return false
	}
	if m.Orientation != "" && m.Orientation != vp.Orientation() {
		return false
	}
	return true
}

// Query renders the condition as a CSS media query.
func (m Media) Query() string {
	var parts []string
	add := func(feature string, v int) {
		if v > 0 {
			parts = append(parts, fmt.Sprintf("(%s: %dpx)", feature, v))
		}
	}
	add("min-width", m.MinWidth)
	add("max-width", m.MaxWidth)
	add("min-height", m.MinHeight)
	add("max-height", m.MaxHeight)
	if m.Orientation != "" {
		parts = append(parts, fmt.Sprintf("(orientation: %s)", m.Orientation))
	}
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, " and ")
}

// Override replaces some base values when its media condition matches.
type Override struct {
	Media  Media             `yaml:"media"`
	Values map[string]string `yaml:"values"`
}

// Store holds base values and ordered overrides. Later overrides win, like
// later rules in a stylesheet.
type Store struct {
	Base      map[string]string `yaml:"base"`
	Overrides []Override        `yaml:"overrides"`
}

// Load parses a YAML store.
func Load(r io.Reader) (*Store, error) {
	var s Store
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode geometry store: %w", err)
	}
	if len(s.Base) == 0 {
		return nil, fmt.Errorf("geometry store has no base values")
	}
	for i, o := range s.Overrides {
		for k := range o.Values {
			if _, ok := s.Base[k]; !ok {
				return nil, fmt.Errorf("override %d sets %q which has no base value", i, k)
			}
		}
	}
	return &s, nil
}

// LoadFile loads a store from path, or the built-in one when path is empty.
func LoadFile(path string) (*Store, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Default returns the built-in store.
func Default() (*Store, error) {
	return Load(bytes.NewReader(defaultYAML))
}

// Resolve returns the Config in effect for vp.
func (s *Store) Resolve(vp Viewport) Config {
	vp = vp.Normalize()
	cfg := make(Config, len(s.Base))
	for k, v := range s.Base {
		cfg[k] = v
	}
	for _, o := range s.Overrides {
		if !o.Media.Matches(vp) {
			continue
		}
		for k, v := range o.Values {
			cfg[k] = v
		}
	}
	return cfg
}

// WriteCSS emits the store as custom properties on :root followed by one
// @media block per override.
func (s *Store) WriteCSS(w io.Writer) error {
	var b strings.Builder
	writeBlock(&b, "", ":root", s.Base)
	for _, o := range s.Overrides {
		fmt.Fprintf(&b, "@media %s {\n", o.Media.Query())
		writeBlock(&b, "  ", ":root", o.Values)
		b.WriteString("}\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeBlock(b *strings.Builder, indent, selector string, values map[string]string) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(b, "%s%s {\n", indent, selector)
	for _, k := range keys {
		fmt.Fprintf(b, "%s  --%s: %s;\n", indent, k, values[k])
	}
	fmt.Fprintf(b, "%s}\n", indent)
}
