package config

import (
	"os"
	"path/filepath"
	"testing"
)

func mapLookup(m map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := defaults()
	env := map[string]string{
		"PORT":                      "9090",
		"BACKEND_API_URL":           "http://api.example.com/api/v1",
		"R2_PUBLIC_URL":             " https://pub-abc123.r2.dev ",
		"IMAGE_PROXY_ALLOWED_HOSTS": "cdn.example.com, img.example.com,,",
		"DATABASE_DRIVER":           "mysql",
	}

	if err := applyEnv(cfg, mapLookup(env)); err != nil {
		t.Fatalf("applyEnv() error = %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.BackendAPIURL != "http://api.example.com/api/v1" {
		t.Errorf("BackendAPIURL = %q", cfg.BackendAPIURL)
	}
	if cfg.Storage.PublicURL != "https://pub-abc123.r2.dev" {
		t.Errorf("Storage.PublicURL = %q", cfg.Storage.PublicURL)
	}
	if len(cfg.ImageProxy.AllowedHosts) != 2 || cfg.ImageProxy.AllowedHosts[1] != "img.example.com" {
		t.Errorf("AllowedHosts = %v", cfg.ImageProxy.AllowedHosts)
	}
	if len(cfg.ImageProxy.DevHosts) != 2 {
		t.Errorf("DevHosts = %v, want defaults", cfg.ImageProxy.DevHosts)
	}
	if cfg.Database.Driver != "mysql" {
		t.Errorf("Database.Driver = %q", cfg.Database.Driver)
	}
}

func TestApplyEnv_InvalidPort(t *testing.T) {
	cfg := defaults()
	if err := applyEnv(cfg, mapLookup(map[string]string{"PORT": "eighty"})); err == nil {
		t.Fatal("expected error for non-numeric PORT")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "bad driver", mutate: func(c *Config) { c.Database.Driver = "postgres" }, wantErr: true},
		{name: "bad port", mutate: func(c *Config) { c.Port = 0 }, wantErr: true},
		{name: "bad backend url", mutate: func(c *Config) { c.BackendAPIURL = "not a url" }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
port: 7000
backendApiUrl: http://localhost:3001
storage:
  publicUrl: https://pub-yaml.r2.dev
  bucket: media
imageProxy:
  allowedHosts:
    - cdn.example.com
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	t.Setenv("R2_BUCKET_NAME", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 7000 {
		t.Errorf("Port = %d, want 7000", cfg.Port)
	}
	if cfg.Storage.PublicURL != "https://pub-yaml.r2.dev" {
		t.Errorf("PublicURL = %q", cfg.Storage.PublicURL)
	}
	if cfg.Storage.Bucket != "from-env" {
		t.Errorf("Bucket = %q, want env override", cfg.Storage.Bucket)
	}
	if len(cfg.ImageProxy.AllowedHosts) != 1 {
		t.Errorf("AllowedHosts = %v", cfg.ImageProxy.AllowedHosts)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
