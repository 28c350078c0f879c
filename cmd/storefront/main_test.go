package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/storefront/internal/testutil"
)

func TestHealthEndpoint(t *testing.T) {
	mux := newMux(http.NotFoundHandler(), readiness(nil))

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got %q", w.Body.String())
	}
}

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		ready      func(context.Context) error
		wantStatus int
		wantBody   string
	}{
		{"no shared cache", readiness(nil), http.StatusOK, "READY"},
		{"cache down", func(context.Context) error { return errors.New("connection refused") }, http.StatusServiceUnavailable, "not ready: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newMux(http.NotFoundHandler(), tt.ready)

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest("GET", "/ready", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want containing %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mux := newMux(http.NotFoundHandler(), readiness(nil))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "storefront_unknown_shop_total") {
		t.Error("metrics output lacks storefront_unknown_shop_total")
	}
}

func TestSiteMountedAtRoot(t *testing.T) {
	called := false
	site := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	mux := newMux(site, readiness(nil))

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/products/1", nil))
	if !called {
		t.Error("site handler not reached")
	}
}

const testShopsFile = `
settings:
  title: Default
  default_language: de
shops:
  - id: alpha
    domain: 'alpha\.test'
    settings:
      title: Alpha
`

// writeConfig creates a storefront.yaml pointing at a shops file in dir.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()

	shops := filepath.Join(dir, "shops.yaml")
	if err := os.WriteFile(shops, []byte(testShopsFile), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := filepath.Join(dir, "storefront.yaml")
	content := "shops_file: " + shops + "\nlog_level: disabled\n" + extra
	if err := os.WriteFile(cfg, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestResolveCommand(t *testing.T) {
	cfg := writeConfig(t, "")

	tests := []struct {
		name      string
		args      []string
		wantShop  string
		wantTitle string
		wantErr   bool
	}{
		{"by domain", []string{"resolve", "www.alpha.test"}, "alpha", "Alpha", false},
		{"by domain with port", []string{"resolve", "alpha.test:8080"}, "alpha", "Alpha", false},
		{"by id", []string{"resolve", "--id", "alpha"}, "alpha", "Alpha", false},
		{"unknown domain", []string{"resolve", "beta.test"}, "", "", true},
		{"unknown id", []string{"resolve", "--id", "beta"}, "", "", true},
		{"no argument", []string{"resolve"}, "", "", true},
		{"both", []string{"resolve", "alpha.test", "--id", "alpha"}, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, append([]string{"--config", cfg}, tt.args...)...)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Execute() error = nil, output %q", out)
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}

			var doc struct {
				Shop     string         `yaml:"shop"`
				Settings map[string]any `yaml:"settings"`
			}
			if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
				t.Fatalf("output is not YAML: %v\n%s", err, out)
			}
			if doc.Shop != tt.wantShop {
				t.Errorf("shop = %q, want %q", doc.Shop, tt.wantShop)
			}
			if doc.Settings["title"] != tt.wantTitle {
				t.Errorf("title = %v, want %q", doc.Settings["title"], tt.wantTitle)
			}
			if doc.Settings["default_language"] != "de" {
				t.Errorf("default_language = %v, want de", doc.Settings["default_language"])
			}
		})
	}
}

func TestCachePurgeCommand(t *testing.T) {
	cacheDir := t.TempDir()
	cfg := writeConfig(t, "cache_dir: "+cacheDir+"\ncache_ttl: 1m\n")

	fresh := filepath.Join(cacheDir, "fresh")
	stale := filepath.Join(cacheDir, "stale")
	for _, f := range []string{fresh, stale} {
		if err := os.WriteFile(f, []byte(`{}`), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "--config", cfg, "cache", "purge")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "removed 1 stale entries") {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh entry removed: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale entry kept: %v", err)
	}
}

func TestCachePurgeCommand_Disabled(t *testing.T) {
	cfg := writeConfig(t, "cache_dir: DISABLED\n")

	out, err := runCLI(t, "--config", cfg, "cache", "purge")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "cache disabled") {
		t.Errorf("output = %q", out)
	}
}

func TestCacheWarmCommand(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetHandler("/products", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"pages":3,"page":%q}`, r.URL.Query().Get("page"))
	})

	cacheDir := t.TempDir()
	cfg := writeConfig(t, "cache_dir: "+cacheDir+"\napi_gateway: "+mock.URL()+"\n")

	out, err := runCLI(t, "--config", cfg, "cache", "warm")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "warmed products for shop alpha: 3 pages") {
		t.Errorf("output = %q", out)
	}
	if got := mock.GetRequestCount(); got != 3 {
		t.Errorf("upstream requests = %d, want 3", got)
	}

	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("cache entries = %d, want 3", len(entries))
	}
}

func TestCacheWarmCommand_UpstreamError(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	cfg := writeConfig(t, "cache_dir: DISABLED\napi_gateway: "+mock.URL()+"\n")

	_, err := runCLI(t, "--config", cfg, "cache", "warm", "categories")
	if err == nil || !strings.Contains(err.Error(), "warm categories for shop alpha") {
		t.Errorf("Execute() error = %v, want warm categories error", err)
	}
}

func TestCacheWarmCommand_UnknownShop(t *testing.T) {
	cfg := writeConfig(t, "cache_dir: DISABLED\napi_gateway: http://127.0.0.1:1\n")

	_, err := runCLI(t, "--config", cfg, "cache", "warm", "--shop", "beta")
	if err == nil || !strings.Contains(err.Error(), `unknown shop "beta"`) {
		t.Errorf("Execute() error = %v, want unknown shop error", err)
	}
}

func TestServeCommand_InvalidShopGateway(t *testing.T) {
	dir := t.TempDir()
	shops := filepath.Join(dir, "shops.yaml")
	content := "shops:\n  - id: alpha\n    domain: 'alpha\\.test'\n    settings:\n      api_gateway: not-a-url\n"
	if err := os.WriteFile(shops, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := filepath.Join(dir, "storefront.yaml")
	settings := "shops_file: " + shops + "\nlog_level: disabled\ncache_dir: DISABLED\napi_gateway: http://127.0.0.1:1\n"
	if err := os.WriteFile(cfg, []byte(settings), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := runCLI(t, "--config", cfg, "serve")
	if err == nil || !strings.Contains(err.Error(), "api client for shop alpha") {
		t.Errorf("Execute() error = %v, want shop client error", err)
	}
}

func TestServeCommand_InvalidGateway(t *testing.T) {
	cfg := writeConfig(t, "cache_dir: DISABLED\napi_gateway: not-a-url\n")

	_, err := runCLI(t, "--config", cfg, "serve")
	if err == nil || !strings.Contains(err.Error(), "api client") {
		t.Errorf("Execute() error = %v, want api client error", err)
	}
}

func TestServeCommand_MissingShops(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "storefront.yaml")
	content := "shops_file: " + filepath.Join(dir, "nope.yaml") + "\nlog_level: disabled\n"
	if err := os.WriteFile(cfg, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := runCLI(t, "--config", cfg, "serve"); err == nil {
		t.Error("Execute() error = nil for missing shops file")
	}
}
