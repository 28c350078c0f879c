// Package config resolves the settings of one shop from shared defaults
// and per-shop overrides.
//
// Resolution never mutates the shared defaults. Each resolution returns a
// new Settings value; a Session layers several resolutions for the duration
// of one request.
package config

import (
	"fmt"
	"sort"
)

// Well-known setting keys.
const (
	KeyLanguages       = "languages"
	KeyDefaultLanguage = "default_language"
	KeyDomain          = "domain"
	KeyShopID          = "shop_id"
	KeyAPIGateway      = "api_gateway"
	KeyAPIToken        = "api_token"
)

// Settings is an immutable view of a settings map.
// Nested maps and slices returned by Get are shared and must be treated as read-only.
type Settings struct {
	values map[string]any
}

// NewSettings copies values into a Settings view.
func NewSettings(values map[string]any) Settings {
	return Settings{values: copyMap(values)}
}

// Get returns the value for key and whether it exists.
func (s Settings) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// String returns the value for key formatted as a string, or "" when unset.
func (s Settings) String(key string) string {
	v, ok := s.values[key]
	if !ok || v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

// Len returns the number of top-level keys.
func (s Settings) Len() int {
	return len(s.values)
}

// Map returns a shallow copy of the settings.
func (s Settings) Map() map[string]any {
	return copyMap(s.values)
}

// With returns a copy with key set to value.
func (s Settings) With(key string, value any) Settings {
	values := copyMap(s.values)
	values[key] = value
	return Settings{values: values}
}

// Overlay returns a copy where every top-level key of overrides replaces the
// key in s. Keys that overrides does not name keep their value.
func (s Settings) Overlay(overrides map[string]any) Settings {
	values := copyMap(s.values)
	for k, v := range overrides {
		values[k] = v
	}
	return Settings{values: values}
}

// Languages returns the languages entry keyed by language code.
func (s Settings) Languages() map[string]any {
	langs, _ := s.values[KeyLanguages].(map[string]any)
	return langs
}

// AvailableLanguages returns the configured language codes in sorted order.
func (s Settings) AvailableLanguages() []string {
	langs := s.Languages()
	codes := make([]string, 0, len(langs))
	for code := range langs {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// IsLanguageAvailable reports whether code has a non-empty language entry.
func (s Settings) IsLanguageAvailable(code string) bool {
	v, ok := s.Languages()[code]
	if !ok || v == nil {
		return false
	}
	if m, ok := v.(map[string]any); ok {
		return len(m) > 0
	}
	return true
}

// LanguageConfig returns the configuration of language code.
func (s Settings) LanguageConfig(code string) (map[string]any, bool) {
	if !s.IsLanguageAvailable(code) {
		return nil, false
	}
	cfg, ok := s.Languages()[code].(map[string]any)
	return cfg, ok
}

// DefaultLanguage returns the default_language setting.
func (s Settings) DefaultLanguage() string {
	return s.String(KeyDefaultLanguage)
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
