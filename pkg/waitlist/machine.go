package waitlist

import (
	"context"
	"sync"
)

// State is a step of the submission flow.
type State int

const (
	StateEditing State = iota
	StateValidating
	StateInvalid
	StateSubmitting
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateValidating:
		return "validating"
	case StateInvalid:
		return "invalid"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Submitter sends a valid form. *Client implements it.
type Submitter interface {
	Submit(ctx context.Context, f Form) error
}

// Outcome is what one Submit call ended in.
type Outcome struct {
	// State is StateInvalid, StateSuccess or StateFailed.
	State  State
	Errors Errors
	// Focus is the input to focus when State is StateInvalid.
	Focus string
	// Alert is the message to show when State is StateFailed.
	Alert string
	Err   error
}

// Snapshot is a copy of the machine's visible state.
type Snapshot struct {
	State     State
	Form      Form
	Errors    Errors
	Open      bool
	Submitted bool
	Loading   bool
}

// Machine drives the waitlist modal: open and close, per-keystroke error
// clearing and the validate/submit flow. Invalid and failed outcomes return
// to editing with the entered values kept; success resets the form, closes
// the modal and marks the visitor as submitted.
type Machine struct {
	submitter Submitter

	mu        sync.Mutex
	state     State
	form      Form
	errs      Errors
	open      bool
	submitted bool

	// OnTransition, when set, observes every state change.
	OnTransition func(from, to State)
}

func NewMachine(s Submitter) *Machine {
	return &Machine{submitter: s, errs: Errors{}}
}

// Restore seeds the machine from state carried across requests.
func (m *Machine) Restore(f Form, open, submitted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.form = f
	m.open = open
	m.submitted = submitted
}

// Open shows the modal with errors cleared.
func (m *Machine) Open() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = true
	m.errs = Errors{}
}

// Close hides the modal. Entered values are kept.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
}

// Change records a keystroke in field.
func (m *Machine) Change(field, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.form = m.form.Set(field, value)
	m.errs = ClearFieldError(m.errs, field, value)
}

// Submit validates and, when valid, sends the form. A submit while another
// is in flight is ignored and reports the current state.
func (m *Machine) Submit(ctx context.Context) Outcome {
	m.mu.Lock()
	if m.state == StateSubmitting || m.state == StateValidating {
		st := m.state
		m.mu.Unlock()
		return Outcome{State: st}
	}
	m.transition(StateValidating)
	errs := m.form.Validate()
	m.errs = errs
	if !errs.Empty() {
		focus := FocusField(errs, m.form)
		m.transition(StateInvalid)
		m.transition(StateEditing)
		m.mu.Unlock()
		return Outcome{State: StateInvalid, Errors: copyErrors(errs), Focus: focus}
	}
	m.transition(StateSubmitting)
	form := m.form
	m.mu.Unlock()

	err := m.submitter.Submit(ctx, form)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.transition(StateFailed)
		m.transition(StateEditing)
		return Outcome{State: StateFailed, Alert: UserMessage(err), Err: err, Errors: Errors{}}
	}
	m.transition(StateSuccess)
	m.form = Form{}
	m.errs = Errors{}
	m.open = false
	m.submitted = true
	return Outcome{State: StateSuccess, Errors: Errors{}}
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:     m.state,
		Form:      m.form,
		Errors:    copyErrors(m.errs),
		Open:      m.open,
		Submitted: m.submitted,
		Loading:   m.state == StateSubmitting,
	}
}

func (m *Machine) transition(to State) {
	from := m.state
	m.state = to
	if m.OnTransition != nil {
		m.OnTransition(from, to)
	}
}

func copyErrors(e Errors) Errors {
	out := make(Errors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}
