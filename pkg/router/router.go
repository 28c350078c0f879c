// Package router dispatches a normalized request path to handlers
// registered with full-match regular expressions.
//
// A Router is created per request and registrations are evaluated eagerly
// in declaration order. There is no short-circuit: every registration whose
// method and pattern match fires. The outcome is recorded as a Result, and
// Default consults it to decide whether the not-found handler runs.
//
//	rt := router.New(router.FromHTTP(r, "/index.php"))
//	rt.Get(`/products/(\d+)`, func(m router.Match) {
//		showProduct(w, m.Params[0])
//	})
//	rt.Post(`/cart/items`, func(m router.Match) {
//		addToCart(w, m.Body)
//	})
//	rt.Default(func(uri string) {
//		notFound(w, uri)
//	})
package router

import (
	"github.com/rs/zerolog"
)

// Method is an HTTP verb a registration is bound to.
type Method string

// Supported methods.
const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"

	// MethodAny is recorded for Match registrations, which ignore the verb.
	MethodAny Method = "*"
)

// Match is what a handler receives.
type Match struct {
	// Params are the capture groups of the pattern, in order, without the
	// full match.
	Params []string

	// Body is the submitted payload for POST, PUT and PATCH and nil otherwise.
	// For POST it is the url.Values of a form submission when fields were
	// posted, else the JSON-decoded body.
	Body any
}

// Param returns the capture group at i, or "" when there is none.
func (m Match) Param(i int) string {
	if i < 0 || i >= len(m.Params) {
		return ""
	}
	return m.Params[i]
}

// Handler handles a matched registration.
type Handler func(Match)

// FallbackHandler receives the URI of a request nothing handled.
type FallbackHandler func(uri string)

// Hit records one registration that fired.
type Hit struct {
	Method  Method
	Pattern string
	Params  []string
}

// Result is the ordered list of registrations that fired for a request.
type Result struct {
	Hits []Hit
}

// Handled reports whether a verb-specific registration fired.
// Match registrations do not count.
func (r Result) Handled() bool {
	for _, h := range r.Hits {
		if h.Method != MethodAny {
			return true
		}
	}
	return false
}

// Router evaluates registrations against one Request.
type Router struct {
	req    *Request
	hits   *[]Hit
	logger zerolog.Logger
}

// New creates a router for req.
func New(req *Request) *Router {
	return &Router{
		req:    req,
		hits:   new([]Hit),
		logger: req.logger,
	}
}

// Request returns the request being routed.
func (rt *Router) Request() *Request {
	return rt.req
}

// Sub returns a nested router over a copy of the current request state.
// Hits of the nested router count toward this router's Result, so a single
// Default at the top level covers sub-resources too. Call Pop on the parent
// or the child to strip the prefix the child should not see.
func (rt *Router) Sub() *Router {
	return &Router{
		req:    rt.req.clone(),
		hits:   rt.hits,
		logger: rt.logger,
	}
}

// Result returns the registrations that fired so far.
func (rt *Router) Result() Result {
	hits := make([]Hit, len(*rt.hits))
	copy(hits, *rt.hits)
	return Result{Hits: hits}
}

// Match fires h if the URI matches pattern, regardless of method.
func (rt *Router) Match(pattern string, h Handler) bool {
	return rt.dispatch(MethodAny, pattern, h)
}

// Get fires h for a GET request whose URI matches pattern.
func (rt *Router) Get(pattern string, h Handler) bool {
	return rt.dispatch(MethodGet, pattern, h)
}

// Post fires h for a POST request whose URI matches pattern.
func (rt *Router) Post(pattern string, h Handler) bool {
	return rt.dispatch(MethodPost, pattern, h)
}

// Put fires h for a PUT request whose URI matches pattern.
func (rt *Router) Put(pattern string, h Handler) bool {
	return rt.dispatch(MethodPut, pattern, h)
}

// Patch fires h for a PATCH request whose URI matches pattern.
func (rt *Router) Patch(pattern string, h Handler) bool {
	return rt.dispatch(MethodPatch, pattern, h)
}

// Delete fires h for a DELETE request whose URI matches pattern.
func (rt *Router) Delete(pattern string, h Handler) bool {
	return rt.dispatch(MethodDelete, pattern, h)
}

// Default fires h with the current URI when no verb-specific registration
// fired. Register it after all others.
func (rt *Router) Default(h FallbackHandler) bool {
	if rt.Result().Handled() {
		return false
	}
	routeMissesTotal.Inc()
	rt.logger.Debug().
		Str("method", string(rt.req.method)).
		Str("uri", rt.req.uri).
		Msg("No route matched")
	h(rt.req.uri)
	return true
}

func (rt *Router) dispatch(method Method, pattern string, h Handler) bool {
	if method != MethodAny && rt.req.method != method {
		return false
	}

	re, err := anchored(pattern)
	if err != nil {
		routePatternErrorsTotal.Inc()
		rt.logger.Error().Err(err).Str("pattern", pattern).Msg("Invalid route pattern")
		return false
	}

	groups := re.FindStringSubmatch(rt.req.uri)
	if groups == nil {
		return false
	}

	m := Match{Params: groups[1:]}
	switch method {
	case MethodPost:
		if form := rt.req.Form(); len(form) > 0 {
			m.Body = form
		} else {
			m.Body = rt.body()
		}
	case MethodPut, MethodPatch:
		m.Body = rt.body()
	}

	*rt.hits = append(*rt.hits, Hit{Method: method, Pattern: pattern, Params: m.Params})
	routeHitsTotal.WithLabelValues(string(method)).Inc()
	rt.logger.Debug().
		Str("method", string(method)).
		Str("pattern", pattern).
		Str("uri", rt.req.uri).
		Msg("Route matched")

	h(m)
	return true
}

func (rt *Router) body() any {
	body, err := rt.req.Body()
	if err != nil {
		rt.logger.Warn().Err(err).Str("uri", rt.req.uri).Msg("Failed to read request body")
	}
	return body
}
