// Package validation implements declarative value checks.
//
// Rules are a closed set of kinds, each with an optional typed parameter,
// and are usually written in the compact "required|integer|min:18" form.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind identifies a single check.
type Kind int

const (
	// Optional accepts a missing value and skips the remaining rules.
	Optional Kind = iota + 1
	// Required needs at least one non-whitespace character.
	Required
	// NonEmpty needs at least one character of any kind.
	NonEmpty
	// URLSafe accepts letters, digits, '-' and '_' (and the empty string).
	URLSafe
	// UUID accepts a lowercase canonical UUID.
	UUID
	// Token accepts a 40 char lowercase hex token.
	Token
	// Integer accepts unsigned decimal digits.
	Integer
	// Word accepts word characters and '-'.
	Word
	// Min compares numerically against Param.
	Min
	// Max compares numerically against Param.
	Max
	// Email accepts a single address.
	Email
	// URL accepts an absolute URL with scheme and host.
	URL
	// Date accepts a date or date-time in a handful of common layouts.
	Date
	// Regex matches against the pattern in Param.
	Regex
)

// Rule is one check with its parameter.
type Rule struct {
	Kind  Kind
	Param string
}

// String renders the rule in its compact form.
func (r Rule) String() string {
	name := r.Kind.String()
	if r.Param != "" {
		return name + ":" + r.Param
	}
	return name
}

var kindNames = map[Kind]string{
	Optional: "optional",
	Required: "required",
	NonEmpty: "nonempty",
	URLSafe:  "urlsafe",
	UUID:     "uuid",
	Token:    "token",
	Integer:  "integer",
	Word:     "word",
	Min:      "min",
	Max:      "max",
	Email:    "email",
	URL:      "url",
	Date:     "date",
	Regex:    "regex",
}

// lookup maps rule names, including aliases, to kinds.
var lookup = map[string]Kind{
	"optional": Optional,
	"required": Required,
	"nonempty": NonEmpty,
	"urlsafe":  URLSafe,
	"uuid":     UUID,
	"token":    Token,
	"int":      Integer,
	"integer":  Integer,
	"word":     Word,
	"min":      Min,
	"max":      Max,
	"email":    Email,
	"url":      URL,
	"date":     Date,
	"regex":    Regex,
}

// String returns the canonical rule name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Lookup returns the kind registered under name.
func Lookup(name string) (Kind, bool) {
	k, ok := lookup[strings.ToLower(name)]
	return k, ok
}

// Parse splits a "rule|rule:param" expression into rules.
// Whitespace is ignored and names are case-insensitive. Regex parameters keep
// their case and may contain ':' but not '|'.
func Parse(expr string) ([]Rule, error) {
	expr = strings.Join(strings.Fields(expr), "")
	if expr == "" {
		return nil, nil
	}

	parts := strings.Split(expr, "|")
	rules := make([]Rule, 0, len(parts))
	for _, part := range parts {
		name, param, _ := strings.Cut(part, ":")
		kind, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown validation rule %q", name)
		}

		rule := Rule{Kind: kind, Param: param}
		if err := rule.check(); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// MustParse is like Parse but panics on error. Use it for rule literals.
func MustParse(expr string) []Rule {
	rules, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return rules
}

// check validates the parameter of a rule at parse time.
func (r Rule) check() error {
	switch r.Kind {
	case Min, Max:
		if _, err := strconv.ParseFloat(r.Param, 64); err != nil {
			return fmt.Errorf("rule %s needs a numeric parameter: %w", r.Kind, err)
		}
	case Regex:
		if _, err := compile(r.Param); err != nil {
			return fmt.Errorf("rule regex: %w", err)
		}
	}
	return nil
}

// compile accepts both bare patterns and /delimited/ ones.
func compile(pattern string) (*regexp.Regexp, error) {
	if len(pattern) >= 2 && pattern[0] == '/' && strings.LastIndexByte(pattern, '/') > 0 {
		end := strings.LastIndexByte(pattern, '/')
		flags := pattern[end+1:]
		pattern = pattern[1:end]
		if strings.Contains(flags, "i") {
			pattern = "(?i)" + pattern
		}
	}
	return regexp.Compile(pattern)
}
