package validation

import (
	"net/url"
)

// ElementTypeNop marks layout-only form elements that carry no value.
const ElementTypeNop = "nop"

// Default messages. Translate them with Form.Translate.
const (
	MessageMandatory       = "Mandatory"
	MessageValidationError = "Validation Error"
)

// Element describes one form field.
type Element struct {
	Name      string `json:"name" yaml:"name"`
	Label     string `json:"label" yaml:"label"`
	Type      string `json:"type" yaml:"type"`
	Mandatory bool   `json:"mandatory" yaml:"mandatory"`
	// Pattern is an optional regular expression the value must match.
	Pattern string `json:"validation,omitempty" yaml:"validation,omitempty"`
}

// Form validates submitted form values against its elements.
type Form struct {
	Elements []Element

	// Translate localizes messages and labels. Identity when nil.
	Translate func(string) string
}

// Report collects the per-field outcome of a form submission.
type Report struct {
	// Errors maps field name to its (last) error message.
	Errors map[string]string

	// Messages are human readable "<message>: <label>" lines in element order.
	Messages []string
}

// OK reports whether no field failed.
func (r Report) OK() bool {
	return len(r.Messages) == 0
}

// Validate checks every non-nop element and accumulates all failures.
func (f Form) Validate(values url.Values) Report {
	report := Report{Errors: map[string]string{}}
	tr := f.translator()

	for _, el := range f.Elements {
		if el.Type == ElementTypeNop {
			continue
		}
		value := values.Get(el.Name)

		if el.Mandatory && value == "" {
			report.add(el.Name, tr(MessageMandatory), tr(el.Label))
		}
		if el.Pattern != "" {
			re, err := compile(el.Pattern)
			if err != nil || !re.MatchString(value) {
				report.add(el.Name, tr(MessageValidationError), tr(el.Label))
			}
		}
	}
	return report
}

// Values keeps only the submitted values of declared, non-nop elements.
func (f Form) Values(values url.Values) map[string]string {
	out := make(map[string]string)
	for _, el := range f.Elements {
		if el.Type == ElementTypeNop {
			continue
		}
		if _, ok := values[el.Name]; !ok {
			continue
		}
		out[el.Name] = values.Get(el.Name)
	}
	return out
}

func (f Form) translator() func(string) string {
	if f.Translate != nil {
		return f.Translate
	}
	return func(s string) string { return s }
}

func (r *Report) add(field, message, label string) {
	r.Errors[field] = message
	r.Messages = append(r.Messages, message+": "+label)
}
