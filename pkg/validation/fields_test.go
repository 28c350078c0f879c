package validation

import (
	"errors"
	"net/url"
	"strings"
	"testing"
)

func TestFields(t *testing.T) {
	rules := map[string]string{
		"name":  "required",
		"email": "required|email",
		"age":   "required|integer|min:18|max:99",
	}

	tests := []struct {
		name      string
		data      map[string]any
		wantField string
		wantRule  Rule
		wantOK    bool
	}{
		{
			name:   "valid",
			data:   map[string]any{"name": "John Doe", "email": "john@doe.com", "age": 25},
			wantOK: true,
		},
		{
			name:      "too young",
			data:      map[string]any{"name": "John Doe", "email": "john@doe.com", "age": 12},
			wantField: "age",
			wantRule:  Rule{Kind: Min, Param: "18"},
		},
		{
			name:      "missing email",
			data:      map[string]any{"name": "John Doe", "age": 30},
			wantField: "email",
			wantRule:  Rule{Kind: Required},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Fields(tt.data, rules)
			if tt.wantOK {
				if err != nil {
					t.Fatalf("Fields() error = %v", err)
				}
				return
			}

			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("Fields() error = %v, want *FieldError", err)
			}
			if fe.Field != tt.wantField || fe.Rule != tt.wantRule {
				t.Errorf("FieldError = %s %v, want %s %v", fe.Field, fe.Rule, tt.wantField, tt.wantRule)
			}
			if !errors.Is(err, ErrValidation) {
				t.Error("FieldError should wrap ErrValidation")
			}
		})
	}
}

func TestFields_EmptyInputsFailClosed(t *testing.T) {
	if err := Fields(nil, map[string]string{"a": "required"}); !errors.Is(err, ErrValidation) {
		t.Errorf("empty data: got %v", err)
	}
	if err := Fields(map[string]any{"a": "x"}, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("empty rules: got %v", err)
	}
}

func TestFieldError_Message(t *testing.T) {
	err := &FieldError{Field: "age", Rule: Rule{Kind: Min, Param: "18"}}
	if !strings.Contains(err.Error(), "age min:18") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestForm(t *testing.T) {
	form := Form{
		Elements: []Element{
			{Name: "email", Label: "E-Mail", Type: "text", Mandatory: true, Pattern: `/^[^@\s]+@[^@\s]+$/`},
			{Name: "headline", Type: ElementTypeNop},
			{Name: "zip", Label: "Zip", Type: "text", Pattern: `^\d{5}$`},
		},
		Translate: strings.ToUpper,
	}

	t.Run("valid", func(t *testing.T) {
		report := form.Validate(url.Values{"email": {"a@b.de"}, "zip": {"12345"}})
		if !report.OK() {
			t.Errorf("Validate() messages = %v", report.Messages)
		}
	})

	t.Run("accumulates", func(t *testing.T) {
		report := form.Validate(url.Values{"zip": {"12"}})
		if report.OK() {
			t.Fatal("Validate() should fail")
		}
		want := []string{"MANDATORY: E-MAIL", "VALIDATION ERROR: E-MAIL", "VALIDATION ERROR: ZIP"}
		if len(report.Messages) != len(want) {
			t.Fatalf("Messages = %v, want %v", report.Messages, want)
		}
		for i := range want {
			if report.Messages[i] != want[i] {
				t.Errorf("Messages[%d] = %q, want %q", i, report.Messages[i], want[i])
			}
		}
		if report.Errors["email"] != "VALIDATION ERROR" {
			t.Errorf("Errors[email] = %q, want last message", report.Errors["email"])
		}
	})

	t.Run("values", func(t *testing.T) {
		got := form.Values(url.Values{"email": {"a@b.de"}, "headline": {"x"}, "other": {"y"}})
		if len(got) != 1 || got["email"] != "a@b.de" {
			t.Errorf("Values() = %v", got)
		}
	})
}
