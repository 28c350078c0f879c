package validation

import (
	"testing"
)

func TestCheck_SingleRules(t *testing.T) {
	tests := []struct {
		name  string
		value any
		expr  string
		want  bool
	}{
		{"required ok", "John", "required", true},
		{"required blank", "   ", "required", false},
		{"nonempty accepts blank", " ", "nonempty", true},
		{"nonempty empty", "", "nonempty", false},
		{"urlsafe ok", "summer-sale_2024", "urlsafe", true},
		{"urlsafe empty", "", "urlsafe", true},
		{"urlsafe slash", "a/b", "urlsafe", false},
		{"uuid ok", "123e4567-e89b-12d3-a456-426614174000", "uuid", true},
		{"uuid upper", "123E4567-E89B-12D3-A456-426614174000", "uuid", false},
		{"token ok", "0123456789abcdef0123456789abcdef01234567", "token", true},
		{"token short", "abc", "token", false},
		{"integer ok", "42", "integer", true},
		{"integer from number", 42, "int", true},
		{"integer negative", "-1", "integer", false},
		{"word ok", "foo-bar_1", "word", true},
		{"word space", "foo bar", "word", false},
		{"min ok", "18", "min:18", true},
		{"min low", 17, "min:18", false},
		{"max ok", 99.0, "max:99", true},
		{"max not numeric", "abc", "max:99", false},
		{"email ok", "john@doe.com", "email", true},
		{"email display name", "John <john@doe.com>", "email", false},
		{"url ok", "https://shop.example.com/p/1", "url", true},
		{"url relative", "/p/1", "url", false},
		{"date iso", "2024-05-01", "date", true},
		{"date time", "2024-05-01 12:30:00", "date", true},
		{"date garbage", "yesterday-ish", "date", false},
		{"regex ok", "ABC", "regex:/^abc$/i", true},
		{"regex bare", "x1", "regex:^x\\d$", true},
		{"regex miss", "y1", "regex:/^x/", false},
		{"nil required", nil, "required", false},
		{"nil optional", nil, "optional|integer", true},
		{"optional with value still checked", "abc", "optional|integer", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := CheckExpr(tt.value, tt.expr)
			if err != nil {
				t.Fatalf("CheckExpr() error = %v", err)
			}
			if res.OK != tt.want {
				t.Errorf("Check(%v, %q) = %v, want %v", tt.value, tt.expr, res.OK, tt.want)
			}
		})
	}
}

func TestCheck_ReportsFirstFailure(t *testing.T) {
	tests := []struct {
		name       string
		value      any
		expr       string
		wantFailed Rule
	}{
		{
			name:       "first rule fails",
			value:      "",
			expr:       "required|integer",
			wantFailed: Rule{Kind: Required},
		},
		{
			name:       "second rule fails",
			value:      "abc",
			expr:       "required|integer",
			wantFailed: Rule{Kind: Integer},
		},
		{
			name:       "param rule fails",
			value:      "12",
			expr:       "required|integer|min:18|max:99",
			wantFailed: Rule{Kind: Min, Param: "18"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Check(tt.value, MustParse(tt.expr)...)
			if res.OK {
				t.Fatal("Check() should fail")
			}
			if res.Failed != tt.wantFailed {
				t.Errorf("Failed = %v, want %v", res.Failed, tt.wantFailed)
			}
		})
	}
}

func TestCheck_NoRules(t *testing.T) {
	if res := Check("anything"); !res.OK {
		t.Error("Check without rules should pass")
	}
}

func TestCheck_UnknownKindFailsClosed(t *testing.T) {
	if res := Check("x", Rule{Kind: Kind(999)}); res.OK {
		t.Error("unknown kind must fail closed")
	}
}
