// Package waitlist holds the contact form rules shared by the landing page
// and the API, the submission state machine and an HTTP client for the API.
package waitlist

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field names. Contact is the combined "email or phone" error.
const (
	FieldName    = "name"
	FieldEmail   = "email"
	FieldPhone   = "phone"
	FieldContact = "contact"
)

// FieldOrder is the order in which errors are reported and focused.
var FieldOrder = []string{FieldName, FieldEmail, FieldPhone, FieldContact}

const (
	MaxNameLength  = 100
	MaxEmailLength = 254
	MinPhoneDigits = 10
	MaxPhoneDigits = 15
)

// Validation messages.
const (
	MsgNameRequired   = "Please enter your name."
	MsgNameTooLong    = "Name is too long."
	MsgContactMissing = "Please provide either an email address or a phone number."
	MsgEmailInvalid   = "Please enter a valid email address."
	MsgEmailTooLong   = "Email is too long."
	MsgPhoneChars     = "Phone number can contain only digits, spaces, +, - and parentheses."
	MsgPhoneTooShort  = "Please enter a valid phone number (at least 10 digits)."
	MsgPhoneTooLong   = "Phone number appears too long."
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^\+?[\d\s()+-]+$`)
)

// Form is one contact submission.
type Form struct {
	Name  string `json:"name" form:"name"`
	Email string `json:"email" form:"email"`
	Phone string `json:"phone" form:"phone"`
}

// Trimmed returns the form with surrounding whitespace removed.
func (f Form) Trimmed() Form {
	return Form{
		Name:  strings.TrimSpace(f.Name),
		Email: strings.TrimSpace(f.Email),
		Phone: strings.TrimSpace(f.Phone),
	}
}

// Payload is what gets posted: trimmed fields with the phone normalized.
func (f Form) Payload() Form {
	p := f.Trimmed()
	p.Phone = NormalizePhone(p.Phone)
	return p
}

// Get returns the value of a named field.
func (f Form) Get(field string) string {
	switch field {
	case FieldName:
		return f.Name
	case FieldEmail:
		return f.Email
	case FieldPhone:
		return f.Phone
	}
	return ""
}

// Set returns a copy with a named field replaced. Unknown names are ignored.
func (f Form) Set(field, value string) Form {
	switch field {
	case FieldName:
		f.Name = value
	case FieldEmail:
		f.Email = value
	case FieldPhone:
		f.Phone = value
	}
	return f
}

// Errors maps a field name to its message. An empty message means no error.
type Errors map[string]string

// Has reports whether field carries a message.
func (e Errors) Has(field string) bool {
	return e[field] != ""
}

// Empty reports whether no field carries a message.
func (e Errors) Empty() bool {
	for _, msg := range e {
		if msg != "" {
			return false
		}
	}
	return true
}

// First returns the first field with an error in FieldOrder.
func (e Errors) First() (field, msg string, ok bool) {
	for _, f := range FieldOrder {
		if e.Has(f) {
			return f, e[f], true
		}
	}
	return "", "", false
}

// Validate checks f. Email and phone are only checked when present; when
// both are missing only the contact error is reported for them.
func (f Form) Validate() Errors {
	errs := Errors{}

	name := strings.TrimSpace(f.Name)
	switch {
	case name == "":
		errs[FieldName] = MsgNameRequired
	case utf8.RuneCountInString(name) > MaxNameLength:
		errs[FieldName] = MsgNameTooLong
	}

	email := strings.TrimSpace(f.Email)
	phone := strings.TrimSpace(f.Phone)

	if email == "" && phone == "" {
		errs[FieldContact] = MsgContactMissing
	}

	if email != "" {
		switch {
		case !emailRe.MatchString(email):
			errs[FieldEmail] = MsgEmailInvalid
		case utf8.RuneCountInString(email) > MaxEmailLength:
			errs[FieldEmail] = MsgEmailTooLong
		}
	}

	if phone != "" {
		digits := countDigits(phone)
		switch {
		case !phoneRe.MatchString(phone):
			errs[FieldPhone] = MsgPhoneChars
		case digits < MinPhoneDigits:
			errs[FieldPhone] = MsgPhoneTooShort
		case digits > MaxPhoneDigits:
			errs[FieldPhone] = MsgPhoneTooLong
		}
	}

	return errs
}

// NormalizePhone strips everything but digits, keeping one leading "+".
func NormalizePhone(phone string) string {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return ""
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, trimmed)
	if strings.HasPrefix(trimmed, "+") {
		return "+" + digits
	}
	return digits
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// FocusField picks the input to focus after a failed validation: the first
// field error in order, or for a contact error the email input when it is
// blank, else the phone input. It returns "" when errs is empty.
func FocusField(errs Errors, f Form) string {
	for _, field := range []string{FieldName, FieldEmail, FieldPhone} {
		if errs.Has(field) {
			return field
		}
	}
	if errs.Has(FieldContact) {
		if strings.TrimSpace(f.Email) == "" {
			return FieldEmail
		}
		return FieldPhone
	}
	return ""
}

// ClearFieldError applies the per-keystroke clearing rule for field having
// just become value, returning the updated errors.
func ClearFieldError(errs Errors, field, value string) Errors {
	out := make(Errors, len(errs))
	for k, v := range errs {
		out[k] = v
	}
	if out.Has(field) {
		out[field] = ""
	}
	if (field == FieldEmail || field == FieldPhone) && value != "" {
		out[FieldContact] = ""
	}
	return out
}
