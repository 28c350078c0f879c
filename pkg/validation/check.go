package validation

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	requiredPattern = regexp.MustCompile(`\S+`)
	urlSafePattern  = regexp.MustCompile(`^[a-zA-Z0-9\-_]*$`)
	uuidPattern     = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	tokenPattern    = regexp.MustCompile(`^[0-9a-f]{40}$`)
	integerPattern  = regexp.MustCompile(`^\d+$`)
	wordPattern     = regexp.MustCompile(`^[\w\-]+$`)
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"02.01.2006",
	"01/02/2006",
	time.RFC1123,
}

// checks is the dispatch table from kind to predicate.
var checks = map[Kind]func(value string, param string) bool{
	Optional: func(string, string) bool { return true },
	Required: func(v, _ string) bool { return requiredPattern.MatchString(v) },
	NonEmpty: func(v, _ string) bool { return v != "" },
	URLSafe:  func(v, _ string) bool { return urlSafePattern.MatchString(v) },
	UUID:     func(v, _ string) bool { return uuidPattern.MatchString(v) },
	Token:    func(v, _ string) bool { return tokenPattern.MatchString(v) },
	Integer:  func(v, _ string) bool { return integerPattern.MatchString(v) },
	Word:     func(v, _ string) bool { return wordPattern.MatchString(v) },
	Min: func(v, p string) bool {
		n, limit, ok := numbers(v, p)
		return ok && n >= limit
	},
	Max: func(v, p string) bool {
		n, limit, ok := numbers(v, p)
		return ok && n <= limit
	},
	Email: func(v, _ string) bool {
		addr, err := mail.ParseAddress(v)
		return err == nil && addr.Address == v
	},
	URL: func(v, _ string) bool {
		u, err := url.Parse(v)
		return err == nil && u.Scheme != "" && u.Host != ""
	},
	Date: func(v, _ string) bool {
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, v); err == nil {
				return true
			}
		}
		return false
	},
	Regex: func(v, p string) bool {
		re, err := compile(p)
		return err == nil && re.MatchString(v)
	},
}

// Result is the outcome of checking one value.
type Result struct {
	// OK is true when every rule passed.
	OK bool

	// Failed is the first rule that did not pass. Zero when OK.
	Failed Rule
}

// Check runs rules in order against value and stops at the first failure.
// A nil value fails every rule unless Optional is among the rules, in which
// case it passes immediately.
func Check(value any, rules ...Rule) Result {
	if value == nil {
		for _, r := range rules {
			if r.Kind == Optional {
				return Result{OK: true}
			}
		}
		if len(rules) > 0 {
			return Result{Failed: rules[0]}
		}
		return Result{OK: true}
	}

	s := stringify(value)
	for _, r := range rules {
		fn, ok := checks[r.Kind]
		if !ok || !fn(s, r.Param) {
			return Result{Failed: r}
		}
	}
	return Result{OK: true}
}

// CheckExpr parses expr and checks value against it. An unparsable
// expression fails closed.
func CheckExpr(value any, expr string) (Result, error) {
	rules, err := Parse(expr)
	if err != nil {
		return Result{}, err
	}
	return Check(value, rules...), nil
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []string:
		if len(v) > 0 {
			return v[0]
		}
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func numbers(value, param string) (float64, float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, 0, false
	}
	limit, err := strconv.ParseFloat(param, 64)
	if err != nil {
		return 0, 0, false
	}
	return n, limit, true
}
