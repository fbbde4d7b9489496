package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Listen != ":8080" {
		t.Errorf("Listen = %q, want %q", cfg.Listen, ":8080")
	}
	if cfg.Reliquary.Location == "" {
		t.Error("Reliquary.Location should not be empty")
	}
	if cfg.Database.Path == "" {
		t.Error("Database.Path should not be empty")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid default", func(c *Config) {}, false},
		{"empty listen", func(c *Config) { c.Listen = "" }, true},
		{"empty base_url", func(c *Config) { c.BaseURL = "" }, true},
		{"empty reliquary location", func(c *Config) { c.Reliquary.Location = "" }, true},
		{"empty database path", func(c *Config) { c.Database.Path = "" }, true},
		{"invalid log level", func(c *Config) { c.Log.Level = "invalid" }, true},
		{"invalid log format", func(c *Config) { c.Log.Format = "invalid" }, true},
		{"postgres without url", func(c *Config) { c.Database.Driver = "postgres" }, true},
		{
			"postgres with url",
			func(c *Config) { c.Database.Driver = "postgres"; c.Database.URL = "postgres://x" },
			false,
		},
		{
			"xsendfile enabled without frontend",
			func(c *Config) { c.Reliquary.XSendfileEnabled = true; c.Reliquary.XSendfileFrontend = "" },
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"100", 100, false},
		{"1KB", 1024, false},
		{"1MB", 1024 * 1024, false},
		{"1GB", 1024 * 1024 * 1024, false},
		{"1.5GB", int64(1.5 * 1024 * 1024 * 1024), false},
		{"1TB", 1024 * 1024 * 1024 * 1024, false},
		{"invalid", 0, true},
		{"10XB", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseSize(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSize(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
listen: ":3000"
base_url: "https://example.com"
reliquary:
  location: "/data/store"
  realm: "TestRealm"
  auth: "alice:secret:admin"
database:
  path: "/data/catalog.db"
log:
  level: "debug"
  format: "json"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Listen != ":3000" {
		t.Errorf("Listen = %q, want %q", cfg.Listen, ":3000")
	}
	if cfg.BaseURL != "https://example.com" {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, "https://example.com")
	}
	if cfg.Reliquary.Location != "/data/store" {
		t.Errorf("Reliquary.Location = %q, want %q", cfg.Reliquary.Location, "/data/store")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "json")
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	content := `{
		"listen": ":4000",
		"base_url": "https://json.example.com"
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Listen != ":4000" {
		t.Errorf("Listen = %q, want %q", cfg.Listen, ":4000")
	}
	if cfg.BaseURL != "https://json.example.com" {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, "https://json.example.com")
	}
}

func TestLoadFromEnv(t *testing.T) {
	cfg := Default()

	t.Setenv("RELIQUARY_LISTEN", ":9000")
	t.Setenv("RELIQUARY_BASE_URL", "https://env.example.com")
	t.Setenv("RELIQUARY_RELIQUARY_LOCATION", "/env/store")
	t.Setenv("RELIQUARY_LOG_LEVEL", "debug")

	cfg.LoadFromEnv()

	if cfg.Listen != ":9000" {
		t.Errorf("Listen = %q, want %q", cfg.Listen, ":9000")
	}
	if cfg.BaseURL != "https://env.example.com" {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, "https://env.example.com")
	}
	if cfg.Reliquary.Location != "/env/store" {
		t.Errorf("Reliquary.Location = %q, want %q", cfg.Reliquary.Location, "/env/store")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestParseCredentials(t *testing.T) {
	cfg := Default()
	cfg.Reliquary.Auth = "alice:secret:admin,release bob:hunter2"

	got := cfg.ParseCredentials()
	want := []Credential{
		{Name: "alice", Password: "secret", Groups: []string{"admin", "release"}},
		{Name: "bob", Password: "hunter2"},
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseCredentials() = %+v, want %+v", got, want)
	}
}
