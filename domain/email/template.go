package email

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/aymerick/raymond"

	"github.com/seekkrr/landingpage/pkg/logger"
)

//go:embed templates
var embeddedTemplates embed.FS

// TemplateSignupConfirmation is sent to every waitlist signup with an email.
const TemplateSignupConfirmation = "signup_confirmation"

// TemplateService renders Handlebars email templates.
//
// Layout of the template file system:
//   - layouts/<name>.hbs wraps rendered content in {{content}}
//   - <name>.hbs is the HTML body
//   - <name>.txt.hbs, when present, is the plain text body
type TemplateService struct {
	log *slog.Logger

	mu        sync.RWMutex
	templates map[string]*raymond.Template
	texts     map[string]*raymond.Template
	layouts   map[string]*raymond.Template
}

// TemplateRenderResult contains the rendered email content
type TemplateRenderResult struct {
	HTML string
	Text string
}

// TemplateContext is the data passed to templates
type TemplateContext map[string]any

// NewEmbeddedTemplateService loads the templates compiled into the binary.
func NewEmbeddedTemplateService(log *slog.Logger) (*TemplateService, error) {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return nil, err
	}
	return NewTemplateService(sub, log)
}

// NewTemplateService parses every template in fsys up front.
func NewTemplateService(fsys fs.FS, log *slog.Logger) (*TemplateService, error) {
	ts := &TemplateService{
		log:       log.With(logger.Scope("email.template")),
		templates: make(map[string]*raymond.Template),
		texts:     make(map[string]*raymond.Template),
		layouts:   make(map[string]*raymond.Template),
	}

	if err := ts.loadDir(fsys, "layouts", func(name string, t *raymond.Template) {
		ts.layouts[name] = t
	}); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err := ts.loadDir(fsys, ".", func(name string, t *raymond.Template) {
		if base, ok := strings.CutSuffix(name, ".txt"); ok {
			ts.texts[base] = t
			return
		}
		ts.templates[name] = t
	}); err != nil {
		return nil, err
	}

	ts.log.Info("loaded email templates",
		slog.Int("templates", len(ts.templates)),
		slog.Int("layouts", len(ts.layouts)))

	return ts, nil
}

func (ts *TemplateService) loadDir(fsys fs.FS, dir string, store func(string, *raymond.Template)) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".hbs") {
			continue
		}
		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read template %s: %w", entry.Name(), err)
		}
		tmpl, err := raymond.Parse(string(content))
		if err != nil {
			return fmt.Errorf("parse template %s: %w", entry.Name(), err)
		}
		store(strings.TrimSuffix(entry.Name(), ".hbs"), tmpl)
	}
	return nil
}

// HasTemplate checks if a template exists
func (ts *TemplateService) HasTemplate(name string) bool {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	_, ok := ts.templates[name]
	return ok
}

// Render renders name with ctx, wrapped in layoutName when that layout
// exists. The text part comes from <name>.txt.hbs or is derived from ctx.
func (ts *TemplateService) Render(name string, ctx TemplateContext, layoutName string) (*TemplateRenderResult, error) {
	ts.mu.RLock()
	tmpl, ok := ts.templates[name]
	text := ts.texts[name]
	layout := ts.layouts[layoutName]
	ts.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("template not found: %s", name)
	}

	content, err := tmpl.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to render template %s: %w", name, err)
	}

	if layout != nil {
		layoutCtx := make(TemplateContext, len(ctx)+1)
		for k, v := range ctx {
			layoutCtx[k] = v
		}
		layoutCtx["content"] = raymond.SafeString(content)

		content, err = layout.Exec(layoutCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to render layout %s: %w", layoutName, err)
		}
	} else if layoutName != "" {
		ts.log.Debug("layout not found, using template directly", slog.String("layout", layoutName))
	}

	result := &TemplateRenderResult{HTML: content}
	if text != nil {
		if result.Text, err = text.Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to render text template %s: %w", name, err)
		}
	} else {
		result.Text = generatePlainText(ctx)
	}
	return result, nil
}

// generatePlainText creates a plain text version from common context fields
func generatePlainText(ctx TemplateContext) string {
	if plainText, ok := ctx["plainText"].(string); ok && plainText != "" {
		return plainText
	}

	var parts []string
	for _, key := range []string{"title", "previewText", "message"} {
		if v, ok := ctx[key].(string); ok && v != "" {
			parts = append(parts, v, "")
		}
	}
	if u, ok := ctx["siteUrl"].(string); ok && u != "" {
		parts = append(parts, "Link: "+u, "")
	}
	return strings.Join(parts, "\n")
}
