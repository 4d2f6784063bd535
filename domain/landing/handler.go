// Package landing serves the SeekKrr landing page: hero, CTA, waitlist modal
// and theme preference.
package landing

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/seekkrr/landingpage/domain/landing/components"
	"github.com/seekkrr/landingpage/internal/config"
	"github.com/seekkrr/landingpage/pkg/geometry"
	"github.com/seekkrr/landingpage/pkg/logger"
	"github.com/seekkrr/landingpage/pkg/waitlist"
)

const (
	CookieSubmitted = "waitlist_submitted"
	CookieTheme     = "theme"

	WaitlistModalID = "waitlist-modal"

	cookieMaxAge   = 365 * 24 * 60 * 60
	maxFormBytes   = 16 << 10
	submittedValue = "1"
)

// Handler renders the landing page and handles its forms.
type Handler struct {
	submitter waitlist.Submitter
	store     *geometry.Store
	darkMode  bool
	log       *slog.Logger
	now       func() time.Time
}

func NewHandler(submitter waitlist.Submitter, store *geometry.Store, cfg *config.Config, log *slog.Logger) *Handler {
	return &Handler{
		submitter: submitter,
		store:     store,
		darkMode:  cfg.Waitlist.EnableDarkMode,
		log:       log.With(logger.Scope("landing")),
		now:       time.Now,
	}
}

// ThemeFrom reads the theme cookie. Anything but "dark" is light.
func ThemeFrom(r *http.Request) string {
	c, err := r.Cookie(CookieTheme)
	if err == nil && c.Value == components.ThemeDark {
		return components.ThemeDark
	}
	return components.ThemeLight
}

// SubmittedFrom reports whether this visitor already joined the waitlist.
func SubmittedFrom(r *http.Request) bool {
	c, err := r.Cookie(CookieSubmitted)
	return err == nil && c.Value == submittedValue
}

func setCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

type pageState struct {
	theme     string
	submitted bool
	open      bool
	form      components.FormView
}

func (h *Handler) render(w http.ResponseWriter, status int, st pageState) {
	page := components.Layout(
		components.PageConfig{
			Title: "SeekKrr - Join the Waitlist",
			Theme: st.theme,
		},
		components.Hero(false),
		components.CTA(st.submitted),
		components.Modal(WaitlistModalID, st.open, components.InterestForm(st.form)),
		components.PageFooter(h.now().Year(), components.ThemeToggle(st.theme, h.darkMode)),
	)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := page.Render(w); err != nil {
		h.log.Error("render page", logger.Error(err))
	}
}

// Page handles GET /. ?join=1 opens the waitlist modal.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	submitted := SubmittedFrom(r)
	h.render(w, http.StatusOK, pageState{
		theme:     ThemeFrom(r),
		submitted: submitted,
		open:      !submitted && r.URL.Query().Get("join") == "1",
	})
}

// Submit handles POST /waitlist. Invalid input re-renders the open modal
// with errors and focus on the first invalid field. A failed submission
// keeps the values and shows the server's message. Success sets the
// submitted cookie and redirects home.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if SubmittedFrom(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := waitlist.Form{
		Name:  r.PostForm.Get(waitlist.FieldName),
		Email: r.PostForm.Get(waitlist.FieldEmail),
		Phone: r.PostForm.Get(waitlist.FieldPhone),
	}

	m := waitlist.NewMachine(h.submitter)
	m.OnTransition = func(from, to waitlist.State) {
		h.log.Debug("waitlist transition", slog.String("from", from.String()), slog.String("to", to.String()))
	}
	m.Restore(form, true, false)

	out := m.Submit(r.Context())
	snap := m.Snapshot()
	st := pageState{theme: ThemeFrom(r), open: true}

	switch out.State {
	case waitlist.StateSuccess:
		setCookie(w, CookieSubmitted, submittedValue)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case waitlist.StateInvalid:
		st.form = components.FormView{Values: snap.Form, Errors: out.Errors, Focus: out.Focus}
		h.render(w, http.StatusUnprocessableEntity, st)
	default:
		h.log.Warn("waitlist submission failed", logger.Error(out.Err))
		st.form = components.FormView{Values: snap.Form, Errors: waitlist.Errors{}, Alert: out.Alert}
		h.render(w, http.StatusBadGateway, st)
	}
}

// Theme handles POST /theme. The preference only flips when dark mode is
// enabled. Scripted callers asking for JSON get the new theme back.
func (h *Handler) Theme(w http.ResponseWriter, r *http.Request) {
	theme := ThemeFrom(r)
	if h.darkMode {
		if theme == components.ThemeDark {
			theme = components.ThemeLight
		} else {
			theme = components.ThemeDark
		}
		setCookie(w, CookieTheme, theme)
	}

	if r.Header.Get("Accept") == "application/json" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"theme":"` + theme + `"}`))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// GeometryCSS handles GET /geometry.css
func (h *Handler) GeometryCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	if err := h.store.WriteCSS(w); err != nil {
		h.log.Error("write geometry css", logger.Error(err))
	}
}
