package components

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	g "maragu.dev/gomponents"

	"github.com/seekkrr/landingpage/pkg/waitlist"
)

func render(t *testing.T, n g.Node) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, n.Render(&b))
	return b.String()
}

func TestModal(t *testing.T) {
	open := render(t, Modal("m", true, g.Text("hi")))
	assert.Contains(t, open, `role="dialog"`)
	assert.Contains(t, open, `aria-modal="true"`)
	assert.Contains(t, open, `aria-labelledby="modal-title"`)
	assert.Contains(t, open, `aria-label="Close modal"`)
	assert.Contains(t, open, `class="modal-backdrop"`)
	assert.NotContains(t, open, " hidden")

	closed := render(t, Modal("m", false))
	assert.Contains(t, closed, " hidden")
	assert.Contains(t, closed, `data-open="false"`)
}

func TestInterestForm(t *testing.T) {
	out := render(t, InterestForm(FormView{
		Values: waitlist.Form{Name: `<b>Ada</b>`},
		Errors: waitlist.Errors{waitlist.FieldContact: waitlist.MsgContactMissing},
		Focus:  waitlist.FieldEmail,
	}))
	assert.Contains(t, out, `id="modal-title"`)
	assert.Contains(t, out, `value="&lt;b&gt;Ada&lt;/b&gt;"`)
	assert.Contains(t, out, `id="err-contact"`)
	assert.Regexp(t, `id="email"[^>]*autofocus`, out)
	assert.Contains(t, out, ">Submit</button>")
	assert.NotContains(t, out, `id="err-email"`)

	loading := render(t, InterestForm(FormView{Loading: true}))
	assert.Contains(t, loading, "Submitting…")
	assert.Contains(t, loading, `aria-busy="true"`)
	assert.Contains(t, loading, `class="submit-button loading"`)

	alert := render(t, InterestForm(FormView{Alert: "Network error. Please check your connection."}))
	assert.Contains(t, alert, `class="form-alert"`)
}

func TestInterestForm_ClearedErrorIsNotInvalid(t *testing.T) {
	errs := waitlist.Errors{waitlist.FieldEmail: waitlist.MsgEmailInvalid}
	errs = waitlist.ClearFieldError(errs, waitlist.FieldEmail, "ada@example.com")

	out := render(t, InterestForm(FormView{
		Values: waitlist.Form{Name: "Ada", Email: "ada@example.com"},
		Errors: errs,
	}))
	assert.NotContains(t, out, `id="err-email"`)
	assert.NotRegexp(t, `id="email"[^>]*aria-invalid="true"`, out)
	assert.NotRegexp(t, `id="email"[^>]*class="error"`, out)
}

func TestCTA(t *testing.T) {
	assert.Contains(t, render(t, CTA(false)), ">Show Interest</button>")
	submitted := render(t, CTA(true))
	assert.Contains(t, submitted, ">You have joined the waitlist</button>")
	assert.Contains(t, submitted, "disabled")
}

func TestThemeToggle(t *testing.T) {
	assert.Nil(t, ThemeToggle(ThemeDark, false))
	assert.Contains(t, render(t, ThemeToggle(ThemeLight, true)), "Switch to Dark")
}

func TestLayoutDefaultsTheme(t *testing.T) {
	out := render(t, Layout(PageConfig{Theme: "neon"}))
	assert.Contains(t, out, `data-color-scheme="light"`)
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
}
