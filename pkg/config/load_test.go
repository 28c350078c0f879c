package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleShops = `
settings:
  title: Default
  default_language: de
  languages:
    de:
      name: Deutsch
    en:
      name: English
shops:
  - id: b
    domain: 'b\.example\.com'
    settings:
      title: Shop B
  - id: fallback
    domain: 'example\.com'
    settings:
      title: Fallback
      default_language: en
`

func TestLoad(t *testing.T) {
	r, err := Load(strings.NewReader(sampleShops))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	s, ok := r.ResolveByDomain("b.example.com")
	if !ok {
		t.Fatal("b.example.com not resolved")
	}
	if got := s.String("title"); got != "Shop B" {
		t.Errorf("title = %q, want Shop B", got)
	}
	if !s.IsLanguageAvailable("en") {
		t.Error("en not available")
	}

	s, ok = r.ResolveByDomain("www.example.com")
	if !ok {
		t.Fatal("www.example.com not resolved")
	}
	if got := s.DefaultLanguage(); got != "en" {
		t.Errorf("DefaultLanguage() = %q, want en", got)
	}
}

func TestLoad_Empty(t *testing.T) {
	r, err := Load(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(r.ShopIDs()) != 0 {
		t.Errorf("ShopIDs() = %v, want none", r.ShopIDs())
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := map[string]string{
		"syntax":      "shops: [",
		"bad pattern": "shops:\n  - id: a\n    domain: '(['\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(strings.NewReader(doc)); err == nil {
				t.Error("Load() error = nil")
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shops.yaml")
	if err := os.WriteFile(path, []byte(sampleShops), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if _, ok := r.ResolveByID("fallback"); !ok {
		t.Error("fallback not loaded")
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile(missing) error = nil")
	}
}
