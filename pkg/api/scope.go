package api

import (
	"context"
	"strings"
)

// Scope identifies the tenant a request is made for. It separates cached
// responses of different shops and languages and sets Accept-Language.
type Scope struct {
	Shop     string
	Language string
}

type scopeKey struct{}

// WithScope returns a context carrying scope.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFrom returns the scope carried by ctx, or the zero Scope.
func ScopeFrom(ctx context.Context) Scope {
	scope, _ := ctx.Value(scopeKey{}).(Scope)
	return scope
}

// cacheKey is the composite key of a cached GET response.
type cacheKey struct {
	Gateway  string `json:"gateway"`
	Shop     string `json:"shop,omitempty"`
	Language string `json:"language,omitempty"`
	Path     string `json:"path"`
}

func (c *Client) cacheKey(ctx context.Context, path string) cacheKey {
	scope := ScopeFrom(ctx)
	return cacheKey{
		Gateway:  c.gateway,
		Shop:     scope.Shop,
		Language: scope.Language,
		Path:     strings.TrimLeft(path, "/"),
	}
}

// flightKey identifies a collapsible in-flight GET.
func (k cacheKey) flightKey() string {
	return strings.Join([]string{"GET", k.Gateway, k.Shop, k.Language, k.Path}, "\x00")
}
