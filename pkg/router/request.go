package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/storefront/pkg/logging"
	"github.com/Sternrassler/storefront/pkg/validation"
)

// ErrMissingBody is returned by BodyOrFail when the request carries no usable payload.
var ErrMissingBody = errors.New("missing request body")

// Cookie names carrying session tokens.
const (
	CookieCartToken     = "cartToken"
	CookieCustomerToken = "customerToken"
)

var (
	scriptFilePattern = regexp.MustCompile(`/\w+\.\w+$`)
	firstSegment      = regexp.MustCompile(`^/\w+`)
	cartTokenPattern  = regexp.MustCompile(`^[\w\-]+$`)
	customerPattern   = regexp.MustCompile(`^\w+$`)
)

// requestRules are the named checks accepted by Request.Validate. "url" here
// means a URL-safe token, not an absolute URL.
var requestRules = map[string]validation.Kind{
	"url":      validation.URLSafe,
	"required": validation.NonEmpty,
}

// Request is the route-matchable form of one inbound call.
// Method, raw path and script name are fixed at construction; only the
// normalized URI changes, through Pop and ReplaceURI.
type Request struct {
	method     Method
	rawPath    string
	scriptName string
	basePath   string
	uri        string
	transport  Transport
	logger     zerolog.Logger

	bodyOnce sync.Once
	body     any
	bodyErr  error
}

// NewRequest normalizes rawPath relative to the directory of scriptName.
// A nil transport behaves like an empty request.
func NewRequest(rawPath, scriptName, method string, transport Transport) *Request {
	if transport == nil {
		transport = StaticTransport{}
	}

	basePath := scriptFilePattern.ReplaceAllString(scriptName, "")
	uri := rawPath
	if basePath != "" {
		uri = strings.TrimPrefix(uri, basePath)
	}

	return &Request{
		method:     Method(strings.ToUpper(method)),
		rawPath:    rawPath,
		scriptName: scriptName,
		basePath:   basePath,
		uri:        "/" + strings.TrimLeft(uri, "/"),
		transport:  transport,
		logger:     logging.NewLogger("router"),
	}
}

// FromHTTP builds a Request from a net/http request. scriptName plays the
// role of the front controller path, e.g. "/shop/index.php" mounts the
// storefront under "/shop".
func FromHTTP(r *http.Request, scriptName string) *Request {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	return NewRequest(r.URL.Path, scriptName, method, HTTPTransport(r))
}

// Method returns the request method.
func (r *Request) Method() Method {
	return r.method
}

// RawPath returns the path as received.
func (r *Request) RawPath() string {
	return r.rawPath
}

// BasePath returns the directory prefix that was stripped from the raw path.
func (r *Request) BasePath() string {
	return r.basePath
}

// URI returns the current normalized URI.
func (r *Request) URI() string {
	return r.uri
}

// Pop drops the first path segment and returns the new URI.
// Popping "/" yields "/".
func (r *Request) Pop() string {
	rest := firstSegment.ReplaceAllString(r.uri, "")
	r.uri = "/" + strings.Trim(rest, "/")
	return r.uri
}

// ReplaceURI substitutes every match of pattern in the URI. The replacement
// may reference groups as $1. A pattern that does not compile leaves the URI
// unchanged.
func (r *Request) ReplaceURI(pattern, replacement string) {
	re, err := compile(pattern)
	if err != nil {
		routePatternErrorsTotal.Inc()
		r.logger.Error().Err(err).Str("pattern", pattern).Msg("Invalid URI rewrite pattern")
		return
	}
	r.uri = re.ReplaceAllString(r.uri, replacement)
}

// Body returns the JSON-decoded payload. The payload is read and decoded
// once. A payload that is not valid JSON decodes to nil.
func (r *Request) Body() (any, error) {
	r.bodyOnce.Do(func() {
		raw, err := r.transport.Body()
		if err != nil {
			r.bodyErr = err
			return
		}
		if len(raw) == 0 {
			return
		}
		if err := json.Unmarshal(raw, &r.body); err != nil {
			r.logger.Debug().Err(err).Str("uri", r.uri).Msg("Request body is not JSON")
			r.body = nil
		}
	})
	return r.body, r.bodyErr
}

// BodyOrFail is Body, but an empty payload is reported as ErrMissingBody.
func (r *Request) BodyOrFail() (any, error) {
	body, err := r.Body()
	if err != nil {
		return nil, err
	}
	if isEmpty(body) {
		return nil, ErrMissingBody
	}
	return body, nil
}

// Form returns the submitted form fields, if any.
func (r *Request) Form() url.Values {
	return r.transport.Form()
}

// Validate reports whether value passes every named check. Unknown names fail.
func (r *Request) Validate(value string, names ...string) bool {
	rules := make([]validation.Rule, 0, len(names))
	for _, name := range names {
		kind, ok := requestRules[name]
		if !ok {
			if kind, ok = validation.Lookup(name); !ok {
				return false
			}
		}
		rules = append(rules, validation.Rule{Kind: kind})
	}
	return validation.Check(value, rules...).OK
}

// CartToken returns the cart token cookie if it is well formed.
func (r *Request) CartToken() (string, bool) {
	return r.token(CookieCartToken, cartTokenPattern)
}

// CustomerToken returns the customer token cookie if it is well formed.
func (r *Request) CustomerToken() (string, bool) {
	return r.token(CookieCustomerToken, customerPattern)
}

func (r *Request) token(name string, pattern *regexp.Regexp) (string, bool) {
	v, ok := r.transport.Cookie(name)
	if !ok || v == "" || !pattern.MatchString(v) {
		return "", false
	}
	return v, true
}

// clone copies the request for a nested router. The body memo is not shared.
func (r *Request) clone() *Request {
	return &Request{
		method:     r.method,
		rawPath:    r.rawPath,
		scriptName: r.scriptName,
		basePath:   r.basePath,
		uri:        r.uri,
		transport:  r.transport,
		logger:     r.logger,
	}
}

// isEmpty follows the loose notion of emptiness used by form posts:
// nil, "", "0", false, 0 and empty collections.
func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == "" || val == "0"
	case bool:
		return !val
	case float64:
		return val == 0
	case map[string]any:
		return len(val) == 0
	case []any:
		return len(val) == 0
	default:
		return false
	}
}
