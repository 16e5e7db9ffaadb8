package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/livyn-inc/cursor-to-notion/internal/index"
)

func TestLoad_MissingGivesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.SyncMode != ModeHierarchy {
		t.Errorf("SyncMode = %q, want hierarchy default", cfg.SyncMode)
	}
	if cfg.Parallelism != DefaultParallelism {
		t.Errorf("Parallelism = %d, want %d", cfg.Parallelism, DefaultParallelism)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := &Project{
		DefaultParentURL: "https://www.notion.so/27db35c4e5fa4a8f9b1c0d2e3f405162",
		SyncMode:         ModeFlat,
		PullApply:        true,
	}
	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.DefaultParentURL != cfg.DefaultParentURL || got.SyncMode != ModeFlat || !got.PullApply {
		t.Errorf("round trip lost fields: %+v", got)
	}
}

func TestLoad_InvalidMode(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, index.MetaDirName), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ConfigPath(dir), []byte(`{"sync_mode":"sideways"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("Load accepted invalid sync_mode")
	}
}

func TestToken_Bridge(t *testing.T) {
	t.Setenv(EnvToken, "")
	t.Setenv(EnvAPIKey, "secret-key")
	os.Unsetenv(EnvToken)

	bridgeTokenEnv()
	if got := os.Getenv(EnvToken); got != "secret-key" {
		t.Errorf("NOTION_TOKEN = %q after bridge, want secret-key", got)
	}
	tok, err := Token()
	if err != nil || tok != "secret-key" {
		t.Errorf("Token() = %q, %v", tok, err)
	}
}

func TestToken_Missing(t *testing.T) {
	t.Setenv(EnvToken, "")
	t.Setenv(EnvAPIKey, "")
	os.Unsetenv(EnvToken)
	os.Unsetenv(EnvAPIKey)

	if _, err := Token(); !errors.Is(err, ErrAuthMissing) {
		t.Errorf("Token() error = %v, want ErrAuthMissing", err)
	}
}

func TestResolver_Order(t *testing.T) {
	dir := t.TempDir()
	idx, err := index.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	idx.SetRootPageURL("https://www.notion.so/legacy00000000000000000000000001")

	cfg := &Project{DefaultParentURL: "https://www.notion.so/primary0000000000000000000000001"}
	r := NewResolver(cfg, idx)
	if u, err := r.RootURL(); err != nil || u != cfg.DefaultParentURL {
		t.Errorf("RootURL = %q, %v; want default_parent_url first", u, err)
	}

	// Without the primary, the legacy index field resolves.
	cfg2 := &Project{}
	r2 := NewResolver(cfg2, idx)
	if u, err := r2.RootURL(); err != nil || u != idx.RootPageURL() {
		t.Errorf("RootURL = %q, %v; want legacy root_page_url", u, err)
	}
}

func TestResolver_EnvOnlyWhenAllowed(t *testing.T) {
	dir := t.TempDir()
	idx, err := index.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvRootURL, "https://www.notion.so/27db35c4e5fa4a8f9b1c0d2e3f405162")

	r := NewResolver(&Project{}, idx)
	if _, err := r.RootURL(); !errors.Is(err, ErrNoRootURL) {
		t.Errorf("RootURL without env fallback = %v, want ErrNoRootURL", err)
	}
	if u, err := r.AllowEnvFallback().RootURL(); err != nil || u == "" {
		t.Errorf("RootURL with env fallback = %q, %v", u, err)
	}
}

func TestResolver_Fix(t *testing.T) {
	dir := t.TempDir()
	idx, err := index.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	legacy := "https://www.notion.so/27db35c4e5fa4a8f9b1c0d2e3f405162"
	idx.SetRootPageURL(legacy)

	cfg := &Project{}
	r := NewResolver(cfg, idx)
	changed, err := r.Fix()
	if err != nil {
		t.Fatalf("Fix failed: %v", err)
	}
	if !changed || cfg.DefaultParentURL != legacy {
		t.Errorf("Fix did not promote legacy URL: changed=%v url=%q", changed, cfg.DefaultParentURL)
	}

	// Second run is a no-op.
	changed, err = r.Fix()
	if err != nil || changed {
		t.Errorf("second Fix = %v, %v; want no-op", changed, err)
	}
}
