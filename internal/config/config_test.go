package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	if cfg.AssetURL != defaultAPIURL {
		t.Fatalf("AssetURL = %q, want %q", cfg.AssetURL, defaultAPIURL)
	}

	wantSession, err := expandPath(defaultSessionPath)
	if err != nil {
		t.Fatalf("expandPath(defaultSessionPath) returned error: %v", err)
	}
	if cfg.SessionPath != wantSession {
		t.Fatalf("SessionPath = %q, want %q", cfg.SessionPath, wantSession)
	}
	if cfg.StaleTime != defaultStaleTime || cfg.GCTime != defaultGCTime {
		t.Fatalf("durations = %v/%v, want defaults", cfg.StaleTime, cfg.GCTime)
	}
}

func TestLoad_ParsesAndTrimsTOML(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_url = "  http://10.0.0.5:9999  "
session_path = "  ~/.seriesnet/session.toml  "
stale_time = "5s"
gc_time = "1m"
request_timeout = "3s"
log_level = "DEBUG"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "http://10.0.0.5:9999" {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, "http://10.0.0.5:9999")
	}
	if cfg.AssetURL != cfg.APIURL {
		t.Fatalf("AssetURL = %q, want it to follow api_url", cfg.AssetURL)
	}
	if !strings.HasPrefix(cfg.SessionPath, home) {
		t.Fatalf("SessionPath = %q, want it under HOME %q", cfg.SessionPath, home)
	}
	if cfg.StaleTime != 5*time.Second || cfg.GCTime != time.Minute || cfg.RequestTimeout != 3*time.Second {
		t.Fatalf("durations = %v/%v/%v", cfg.StaleTime, cfg.GCTime, cfg.RequestTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoad_ParsesYAML(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(`
api_url: http://api.example.com
asset_url: http://cdn.example.com
stale_time: 10s
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "http://api.example.com" || cfg.AssetURL != "http://cdn.example.com" {
		t.Fatalf("urls = %q/%q", cfg.APIURL, cfg.AssetURL)
	}
	if cfg.StaleTime != 10*time.Second {
		t.Fatalf("StaleTime = %v, want 10s", cfg.StaleTime)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_url = "   "
log_file = ""
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	wantLog, err := expandPath(defaultLogFile)
	if err != nil {
		t.Fatalf("expandPath(defaultLogFile) returned error: %v", err)
	}
	if cfg.LogFile != wantLog {
		t.Fatalf("LogFile = %q, want %q", cfg.LogFile, wantLog)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`api_url = [`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestLoad_InvalidDurationFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`stale_time = "soon"`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "stale_time") {
		t.Fatalf("Load error = %v, want stale_time error", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SERIESNET_API_URL", "http://override:1")
	t.Setenv("SERIESNET_STALE_TIME", "2s")
	t.Setenv("SERIESNET_TIMEOUT", "750ms")

	cfg, err := Load(filepath.Join(home, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "http://override:1" || cfg.AssetURL != "http://override:1" {
		t.Fatalf("urls = %q/%q, want override", cfg.APIURL, cfg.AssetURL)
	}
	if cfg.StaleTime != 2*time.Second || cfg.RequestTimeout != 750*time.Millisecond {
		t.Fatalf("durations = %v/%v", cfg.StaleTime, cfg.RequestTimeout)
	}

	t.Setenv("SERIESNET_TIMEOUT", "nope")
	if _, err := Load(filepath.Join(home, "missing.toml")); err == nil {
		t.Fatalf("Load returned nil error for bad SERIESNET_TIMEOUT")
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}
