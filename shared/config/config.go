package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = 8080
	defaultBackendAPIURL  = "http://localhost:3003/api/v1"
	defaultDatabaseDriver = "sqlite"
	defaultDatabaseURL    = "./agromedia.db"
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
)

var defaultDevHosts = []string{"localhost", "127.0.0.1"}

// Storage holds the object storage (Cloudflare R2) settings.
type Storage struct {
	PublicURL       string `yaml:"publicUrl"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyId"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	Bucket          string `yaml:"bucket"`
}

// ImageProxy holds the proxy allow-list settings.
type ImageProxy struct {
	DevHosts     []string `yaml:"devHosts"`
	AllowedHosts []string `yaml:"allowedHosts"`
}

type Database struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite mysql"`
	URL    string `yaml:"url" validate:"required"`
}

type Logging struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

type Config struct {
	Port          int        `yaml:"port" validate:"min=1,max=65535"`
	BackendAPIURL string     `yaml:"backendApiUrl" validate:"required,url"`
	Storage       Storage    `yaml:"storage"`
	ImageProxy    ImageProxy `yaml:"imageProxy"`
	Database      Database   `yaml:"database"`
	Logging       Logging    `yaml:"logging"`
}

// Load builds the process configuration.
// Sources in increasing precedence: defaults, the YAML file at yamlPath (if non-empty),
// a .env file in the working directory (if present), and the process environment.
func Load(yamlPath string) (*Config, error) {
	cfg := defaults()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", yamlPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", yamlPath, err)
		}
	}

	// godotenv never overrides variables that are already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:          defaultPort,
		BackendAPIURL: defaultBackendAPIURL,
		ImageProxy: ImageProxy{
			DevHosts: append([]string(nil), defaultDevHosts...),
		},
		Database: Database{
			Driver: defaultDatabaseDriver,
			URL:    defaultDatabaseURL,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	setString := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	setList := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok {
			*dst = splitList(v)
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}

	setString("BACKEND_API_URL", &cfg.BackendAPIURL)
	setString("R2_PUBLIC_URL", &cfg.Storage.PublicURL)
	setString("R2_ENDPOINT", &cfg.Storage.Endpoint)
	setString("R2_ACCESS_KEY_ID", &cfg.Storage.AccessKeyID)
	setString("R2_SECRET_ACCESS_KEY", &cfg.Storage.SecretAccessKey)
	setString("R2_BUCKET_NAME", &cfg.Storage.Bucket)
	setList("IMAGE_PROXY_DEV_HOSTS", &cfg.ImageProxy.DevHosts)
	setList("IMAGE_PROXY_ALLOWED_HOSTS", &cfg.ImageProxy.AllowedHosts)
	setString("DATABASE_DRIVER", &cfg.Database.Driver)
	setString("DATABASE_URL", &cfg.Database.URL)
	setString("LOG_LEVEL", &cfg.Logging.Level)
	setString("LOG_FORMAT", &cfg.Logging.Format)

	return nil
}

// Validate checks the struct tags of the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
