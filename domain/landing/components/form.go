package components

import (
	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"github.com/seekkrr/landingpage/pkg/waitlist"
)

// FormView is what the waitlist form needs to render one state.
type FormView struct {
	Values  waitlist.Form
	Errors  waitlist.Errors
	Focus   string
	Loading bool
	// Alert is a submission failure shown above the button.
	Alert string
}

type field struct {
	name, label, inputType, placeholder string
}

var formFields = []field{
	{waitlist.FieldName, "Name", "text", "Enter Name"},
	{waitlist.FieldEmail, "Email", "email", "Enter Email"},
	{waitlist.FieldPhone, "Phone Number", "tel", "Enter Phone Number"},
}

// InterestForm is the waitlist form posted to /waitlist.
func InterestForm(v FormView) g.Node {
	submitLabel, submitClass := "Submit", "submit-button"
	if v.Loading {
		submitLabel, submitClass = "Submitting…", "submit-button loading"
	}

	return g.El("form",
		Class("form"),
		Method("post"),
		Action("/waitlist"),
		g.Attr("novalidate"),
		g.Attr("data-waitlist-form", ""),

		H2(ID(ModalTitleID), g.Text("Join the Waitlist")),

		g.Group(g.Map(formFields, func(f field) g.Node {
			return formGroup(f, v)
		})),

		g.If(v.Errors.Has(waitlist.FieldContact),
			Div(
				Class("form-group"),
				Span(Class("error-message"), ID("err-contact"), g.Attr("role", "alert"), g.Text(v.Errors[waitlist.FieldContact])),
			),
		),

		P(Class("form-disclaimer"), g.Text("Be the first customers and get exclusive coupons. Leave your details and we will contact you.")),

		g.If(v.Alert != "",
			Div(Class("form-alert"), g.Attr("role", "alert"), g.Text(v.Alert)),
		),

		Button(
			Class(submitClass),
			Type("submit"),
			g.If(v.Loading, Disabled()),
			g.Attr("aria-busy", boolAttr(v.Loading)),
			g.Text(submitLabel),
		),
	)
}

func formGroup(f field, v FormView) g.Node {
	msg := v.Errors[f.name]
	invalid := v.Errors.Has(f.name)
	errID := "err-" + f.name

	return Div(
		Class("form-group"),
		g.El("label", For(f.name), g.Text(f.label)),
		Input(
			ID(f.name),
			Name(f.name),
			Type(f.inputType),
			Value(v.Values.Get(f.name)),
			Placeholder(f.placeholder),
			g.If(invalid, Class("error")),
			g.If(v.Loading, Disabled()),
			g.If(v.Focus == f.name, g.Attr("autofocus")),
			g.Attr("aria-invalid", boolAttr(invalid)),
			g.If(invalid, g.Attr("aria-describedby", errID)),
		),
		g.If(invalid,
			Span(Class("error-message"), ID(errID), g.Attr("role", "alert"), g.Text(msg)),
		),
	)
}
