// Package storefront serves the shop front of every configured tenant over
// HTTP, proxying catalogue and cart operations to the commerce API.
package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/storefront/pkg/api"
	"github.com/Sternrassler/storefront/pkg/config"
	"github.com/Sternrassler/storefront/pkg/logging"
	"github.com/Sternrassler/storefront/pkg/pagination"
	"github.com/Sternrassler/storefront/pkg/router"
	"github.com/Sternrassler/storefront/pkg/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HeaderRequestID carries the request id in and out.
const HeaderRequestID = "X-Request-ID"

// Session keys set per request.
const (
	KeyLanguage  = "language"
	KeyRequestID = "request_id"
)

var languagePrefix = regexp.MustCompile(`^/([a-z]{2})(?:/|$)`)

// API is the part of the commerce API client the site uses.
type API interface {
	Get(ctx context.Context, path string, useCache bool) (json.RawMessage, error)
	Post(ctx context.Context, path string, payload any) (json.RawMessage, error)
	Patch(ctx context.Context, path string, payload any) (json.RawMessage, error)
	Delete(ctx context.Context, path string) (json.RawMessage, error)
}

// ClientFunc selects the API client for a gateway and token.
type ClientFunc func(gateway, token string) (API, error)

// Config configures a Site.
type Config struct {
	// ScriptName is the front controller path; its directory is stripped
	// from request paths. Empty mounts the site at the root.
	ScriptName string

	Resolver *config.Resolver

	// API serves shops that do not override api_gateway or api_token.
	API API

	// Clients returns the client for a shop's api_gateway and api_token
	// overrides; empty values mean the process default. Optional.
	Clients ClientFunc

	// Timeout bounds the commerce API calls of one request (default: 30s).
	Timeout time.Duration
}

// Site is the storefront HTTP handler.
type Site struct {
	scriptName string
	resolver   *config.Resolver
	api        API
	clients    ClientFunc
	timeout    time.Duration
	newsletter validation.Form
	logger     zerolog.Logger
}

// NewSite creates the storefront handler.
func NewSite(cfg Config) (*Site, error) {
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if cfg.API == nil {
		return nil, fmt.Errorf("api client is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Site{
		scriptName: cfg.ScriptName,
		resolver:   cfg.Resolver,
		api:        cfg.API,
		clients:    cfg.Clients,
		timeout:    timeout,
		newsletter: NewsletterForm(),
		logger:     logging.NewLogger("storefront"),
	}, nil
}

// NewsletterForm is the newsletter subscription form.
func NewsletterForm() validation.Form {
	return validation.Form{Elements: []validation.Element{
		{Name: "email", Label: "E-Mail", Type: "email", Mandatory: true, Pattern: `/^[^@\s]+@[^@\s]+\.[^@\s]+$/`},
		{Name: "name", Label: "Name", Type: "text"},
		{Name: "consent", Label: "Consent", Type: "checkbox", Mandatory: true},
		{Name: "hint", Type: validation.ElementTypeNop},
	}}
}

// visit is the state of one request.
type visit struct {
	ctx      context.Context
	req      *router.Request
	query    url.Values
	session  *config.Session
	settings config.Settings
	language string
	api      API
	out      *responder
	logger   zerolog.Logger
}

// ServeHTTP implements http.Handler.
func (s *Site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	requestID := r.Header.Get(HeaderRequestID)
	if _, err := uuid.Parse(requestID); err != nil {
		requestID = uuid.NewString()
	}
	w.Header().Set(HeaderRequestID, requestID)

	logger := s.logger.With().
		Str("request_id", requestID).
		Str("method", r.Method).
		Str("uri", r.URL.Path).
		Logger()
	out := &responder{w: w, logger: logger}

	defer func() {
		httpRequestsTotal.WithLabelValues(r.Method, fmt.Sprint(out.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
		logger.Debug().Int("status", out.status).Dur("duration", time.Since(start)).Msg("Request served")
	}()

	host := hostOnly(r.Host)
	session := s.resolver.Session()
	settings, ok := session.ResolveByDomain(host)
	if !ok {
		unknownShopTotal.Inc()
		logger.Warn().Str("host", host).Msg("No shop configured for host")
		out.fail(http.StatusNotFound, CodeUnknownShop, "Unknown shop")
		return
	}
	logger = logger.With().Str("shop", session.ShopID()).Logger()
	out.logger = logger
	session.Set(KeyRequestID, requestID)

	client, err := s.client(settings)
	if err != nil {
		logger.Error().Err(err).Msg("No API client for shop")
		out.fail(http.StatusBadGateway, CodeUpstream, "API unavailable")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	v := &visit{
		req:      router.FromHTTP(r, s.scriptName),
		query:    r.URL.Query(),
		session:  session,
		settings: settings,
		api:      client,
		out:      out,
		logger:   logger,
	}
	v.language = s.negotiateLanguage(v)
	session.Set(KeyLanguage, v.language)
	v.ctx = api.WithScope(ctx, api.Scope{Shop: session.ShopID(), Language: v.language})

	s.route(v)
}

// client selects the API client of the resolved shop.
func (s *Site) client(settings config.Settings) (API, error) {
	gateway := settings.String(config.KeyAPIGateway)
	token := settings.String(config.KeyAPIToken)
	if s.clients == nil || (gateway == "" && token == "") {
		return s.api, nil
	}
	return s.clients(gateway, token)
}

// negotiateLanguage strips an available language prefix from the URI and
// returns the request language.
func (s *Site) negotiateLanguage(v *visit) string {
	m := languagePrefix.FindStringSubmatch(v.req.URI())
	if m != nil && v.settings.IsLanguageAvailable(m[1]) {
		v.req.ReplaceURI(`^/`+m[1]+`(?:/|$)`, "/")
		return m[1]
	}
	return v.settings.DefaultLanguage()
}

// route registers the storefront routes. Every matching registration fires.
func (s *Site) route(v *visit) {
	rt := router.New(v.req)

	rt.Get(`/`, func(router.Match) {
		v.out.success(map[string]any{
			"shop":      v.session.ShopID(),
			"title":     v.settings.String("title"),
			"language":  v.language,
			"languages": v.settings.AvailableLanguages(),
		})
	})

	rt.Get(`/products`, func(router.Match) {
		path := "products"
		if page := v.query.Get("page"); page != "" {
			if !v.req.Validate(page, "integer") {
				v.out.fail(http.StatusBadRequest, CodeBadRequest, "page must be an integer")
				return
			}
			n, err := strconv.Atoi(page)
			if err != nil {
				v.out.fail(http.StatusBadRequest, CodeBadRequest, "page out of range")
				return
			}
			path = pagination.PagePath(path, n)
		}
		s.proxyGet(v, path)
	})

	rt.Get(`/products/(\d+)`, func(m router.Match) {
		s.proxyGet(v, "products/"+m.Param(0))
	})

	rt.Get(`/categories/([\w\-]+)`, func(m router.Match) {
		s.proxyGet(v, "categories/"+m.Param(0))
	})

	rt.Match(`/cart(?:/.*)?`, func(router.Match) {
		sub := rt.Sub()
		sub.Request().Pop()
		s.routeCart(v, sub)
	})

	rt.Post(`/newsletter`, func(m router.Match) {
		s.subscribe(v, m)
	})

	rt.Default(func(uri string) {
		v.out.fail(http.StatusNotFound, CodeNotFound, "No route for "+uri)
	})
}

func (s *Site) routeCart(v *visit, rt *router.Router) {
	rt.Get(`/`, func(router.Match) {
		token, ok := v.req.CartToken()
		if !ok {
			v.out.fail(http.StatusNotFound, CodeMissingCart, "No cart")
			return
		}
		s.proxyGet(v, "carts/"+token)
	})

	rt.Post(`/items`, func(m router.Match) {
		payload := formPayload(m.Body)
		if payload == nil {
			v.out.fail(http.StatusBadRequest, CodeInvalidPayload, "Missing item")
			return
		}
		token, ok := v.req.CartToken()
		if !ok {
			var err error
			if token, err = s.createCart(v); err != nil {
				v.out.upstream(err)
				return
			}
		}
		data, err := v.api.Post(v.ctx, "carts/"+token+"/items", payload)
		if err != nil {
			v.out.upstream(err)
			return
		}
		v.out.data(data)
	})

	rt.Patch(`/items/([\w\-]+)`, func(m router.Match) {
		token, ok := v.req.CartToken()
		if !ok {
			v.out.fail(http.StatusNotFound, CodeMissingCart, "No cart")
			return
		}
		body, err := rt.Request().BodyOrFail()
		if err != nil {
			v.out.fail(http.StatusBadRequest, CodeInvalidPayload, err.Error())
			return
		}
		data, err := v.api.Patch(v.ctx, "carts/"+token+"/items/"+m.Param(0), body)
		if err != nil {
			v.out.upstream(err)
			return
		}
		v.out.data(data)
	})

	rt.Delete(`/items/([\w\-]+)`, func(m router.Match) {
		token, ok := v.req.CartToken()
		if !ok {
			v.out.fail(http.StatusNotFound, CodeMissingCart, "No cart")
			return
		}
		data, err := v.api.Delete(v.ctx, "carts/"+token+"/items/"+m.Param(0))
		if err != nil {
			v.out.upstream(err)
			return
		}
		v.out.data(data)
	})
}

// createCart opens a cart and hands its token to the client as a cookie.
func (s *Site) createCart(v *visit) (string, error) {
	data, err := v.api.Post(v.ctx, "carts", map[string]any{
		"shop":     v.session.ShopID(),
		"language": v.language,
	})
	if err != nil {
		return "", err
	}

	var created struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &created); err != nil || !v.req.Validate(created.Token, "required", "word") {
		return "", fmt.Errorf("create cart: unexpected response %s", data)
	}

	http.SetCookie(v.out.w, &http.Cookie{
		Name:     router.CookieCartToken,
		Value:    created.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	v.logger.Info().Str("cart", created.Token).Msg("Cart created")
	return created.Token, nil
}

func (s *Site) subscribe(v *visit, m router.Match) {
	values := formValues(m.Body)
	report := s.newsletter.Validate(values)
	if !report.OK() {
		v.out.json(http.StatusUnprocessableEntity, errorBody{
			Error:   true,
			Code:    CodeValidation,
			Message: strings.Join(report.Messages, "; "),
			Fields:  report.Errors,
		})
		return
	}

	fields := s.newsletter.Values(values)
	fields[KeyLanguage] = v.language
	if _, err := v.api.Post(v.ctx, "newsletter", fields); err != nil {
		v.out.upstream(err)
		return
	}
	v.out.success(map[string]any{"subscribed": fields["email"]})
}

func (s *Site) proxyGet(v *visit, path string) {
	data, err := v.api.Get(v.ctx, path, true)
	if err != nil {
		v.out.upstream(err)
		return
	}
	v.out.data(data)
}

// formPayload turns a submitted body into an API payload.
// Form posts are flattened to their first value per field.
func formPayload(body any) any {
	switch b := body.(type) {
	case url.Values:
		out := make(map[string]any, len(b))
		for k := range b {
			out[k] = b.Get(k)
		}
		return out
	case map[string]any:
		if len(b) == 0 {
			return nil
		}
		return b
	case nil:
		return nil
	default:
		return b
	}
}

// formValues reads a form post or a flat JSON object as form values.
func formValues(body any) url.Values {
	switch b := body.(type) {
	case url.Values:
		return b
	case map[string]any:
		values := make(url.Values, len(b))
		for k, v := range b {
			switch val := v.(type) {
			case nil:
			case string:
				values.Set(k, val)
			default:
				values.Set(k, fmt.Sprint(val))
			}
		}
		return values
	default:
		return url.Values{}
	}
}

func hostOnly(hostport string) string {
	host, _, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport
	}
	return host
}

// ErrUnknownShop is returned by Resolve for domains no shop matches.
var ErrUnknownShop = errors.New("no shop matches domain")

// Resolve returns the settings of the shop serving domain.
func Resolve(resolver *config.Resolver, domain string) (config.Settings, string, error) {
	session := resolver.Session()
	settings, ok := session.ResolveByDomain(hostOnly(domain))
	if !ok {
		return config.Settings{}, "", fmt.Errorf("%s: %w", domain, ErrUnknownShop)
	}
	return settings, session.ShopID(), nil
}
