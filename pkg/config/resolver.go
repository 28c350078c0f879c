package config

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/Sternrassler/storefront/pkg/logging"
	"github.com/rs/zerolog"
)

// Shop holds the overrides of one tenant.
type Shop struct {
	// ID identifies the shop.
	ID string `yaml:"id"`

	// Domain is a regular expression searched (unanchored) in the request
	// domain. Shops without a domain are only resolvable by ID.
	Domain string `yaml:"domain"`

	// Settings override the shared defaults for this shop.
	Settings map[string]any `yaml:"settings"`

	pattern *regexp.Regexp
}

// overrides returns the keys a resolution of this shop applies.
func (s Shop) overrides() map[string]any {
	out := copyMap(s.Settings)
	out[KeyShopID] = s.ID
	if s.Domain != "" {
		out[KeyDomain] = s.Domain
	}
	return out
}

// Resolver resolves shop settings from shared defaults.
// It is safe for concurrent use.
type Resolver struct {
	mu       sync.RWMutex
	defaults Settings
	shops    []Shop
	byID     map[string]int
	logger   zerolog.Logger
}

// NewResolver validates shops and compiles their domain patterns.
// Shops keep their declaration order for domain matching.
func NewResolver(defaults map[string]any, shops []Shop) (*Resolver, error) {
	r := &Resolver{
		defaults: NewSettings(defaults),
		shops:    make([]Shop, 0, len(shops)),
		byID:     make(map[string]int, len(shops)),
		logger:   logging.NewLogger("config"),
	}

	for _, shop := range shops {
		if shop.ID == "" {
			return nil, fmt.Errorf("shop without id (domain %q)", shop.Domain)
		}
		if _, dup := r.byID[shop.ID]; dup {
			return nil, fmt.Errorf("duplicate shop id %q", shop.ID)
		}
		if shop.Domain != "" {
			re, err := regexp.Compile(shop.Domain)
			if err != nil {
				return nil, fmt.Errorf("shop %s: invalid domain pattern: %w", shop.ID, err)
			}
			shop.pattern = re
		}
		shop.Settings = copyMap(shop.Settings)

		r.byID[shop.ID] = len(r.shops)
		r.shops = append(r.shops, shop)
	}

	return r, nil
}

// Defaults returns the shared settings.
func (r *Resolver) Defaults() Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults
}

// Get reads a shared setting.
func (r *Resolver) Get(key string) (any, bool) {
	return r.Defaults().Get(key)
}

// Set replaces a shared setting. Settings values already handed out are not affected.
func (r *Resolver) Set(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults = r.defaults.With(key, value)
}

// ShopIDs returns the shop ids in declaration order.
func (r *Resolver) ShopIDs() []string {
	ids := make([]string, len(r.shops))
	for i, s := range r.shops {
		ids[i] = s.ID
	}
	return ids
}

// ResolveByID returns the defaults overlaid with the shop's overrides.
func (r *Resolver) ResolveByID(id string) (Settings, bool) {
	return r.resolveOnto(r.Defaults(), id)
}

// ResolveByDomain resolves the first shop whose domain pattern is found in domain.
func (r *Resolver) ResolveByDomain(domain string) (Settings, bool) {
	id, ok := r.MatchDomain(domain)
	if !ok {
		return Settings{}, false
	}
	return r.ResolveByID(id)
}

// MatchDomain returns the id of the first shop whose pattern matches domain.
func (r *Resolver) MatchDomain(domain string) (string, bool) {
	for _, shop := range r.shops {
		if shop.pattern != nil && shop.pattern.MatchString(domain) {
			return shop.ID, true
		}
	}
	r.logger.Debug().Str("domain", domain).Msg("No shop matches domain")
	return "", false
}

func (r *Resolver) resolveOnto(base Settings, id string) (Settings, bool) {
	idx, ok := r.byID[id]
	if !ok {
		return Settings{}, false
	}
	return base.Overlay(r.shops[idx].overrides()), true
}

// Session returns a request-scoped layered view starting at the current defaults.
func (r *Resolver) Session() *Session {
	return &Session{resolver: r, current: r.Defaults()}
}

// Session accumulates shop resolutions for one request.
//
// Resolving shop A and then shop B leaves B's values for keys B defines and
// A's values for keys only A defines. The resolver defaults are never
// touched. A Session is not safe for concurrent use.
type Session struct {
	resolver *Resolver
	current  Settings
	shopID   string
}

// ResolveByID overlays the shop onto the session view.
func (s *Session) ResolveByID(id string) (Settings, bool) {
	next, ok := s.resolver.resolveOnto(s.current, id)
	if !ok {
		return Settings{}, false
	}
	s.current = next
	s.shopID = id
	return next, true
}

// ResolveByDomain overlays the first shop matching domain onto the session view.
func (s *Session) ResolveByDomain(domain string) (Settings, bool) {
	id, ok := s.resolver.MatchDomain(domain)
	if !ok {
		return Settings{}, false
	}
	return s.ResolveByID(id)
}

// ShopID returns the last resolved shop, or "".
func (s *Session) ShopID() string {
	return s.shopID
}

// Settings returns the current view.
func (s *Session) Settings() Settings {
	return s.current
}

// Get reads from the current view.
func (s *Session) Get(key string) (any, bool) {
	return s.current.Get(key)
}

// Set changes a key for the rest of the session only.
func (s *Session) Set(key string, value any) {
	s.current = s.current.With(key, value)
}
