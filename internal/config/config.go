package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ServerCfg struct {
	Addr                string `yaml:"addr" json:"addr"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds" json:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds" json:"write_timeout_seconds"` // 0 disables; scans of large trees can be slow
	BodyLimitBytes      int64  `yaml:"body_limit_bytes" json:"body_limit_bytes"`
	RateLimit           int    `yaml:"rate_limit" json:"rate_limit"` // Requests per second per client
	RateBurst           int    `yaml:"rate_burst" json:"rate_burst"`
	TLSCertFile         string `yaml:"tls_cert_file" json:"tls_cert_file"` // TLS is used only when both files are set
	TLSKeyFile          string `yaml:"tls_key_file" json:"tls_key_file"`
	// Origins allowed to call the API from a browser; empty means same-origin only, "*" means any
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	// Key rate limits on X-Forwarded-For; enable only behind a proxy that sets it
	TrustProxyHeaders bool `yaml:"trust_proxy_headers" json:"trust_proxy_headers"`
}

type PrometheusCfg struct {
	Port int `yaml:"port" json:"port"`
}

type LoggingCfg struct {
	Dir          string `yaml:"dir" json:"dir"`
	File         string `yaml:"file" json:"file"`
	RotationDays int    `yaml:"rotation_days" json:"rotation_days"` // Days to keep logs before rotation
}

type HistoryCfg struct {
	RetentionDays        int `yaml:"retention_days" json:"retention_days"`
	PruneIntervalMinutes int `yaml:"prune_interval_minutes" json:"prune_interval_minutes"`
}

type ResourceLimits struct {
	MaxCPUPercent float64 `yaml:"max_cpu_percent" json:"max_cpu_percent"` // 0 leaves size traversal unthrottled
}

type ScanCfg struct {
	MaxDepth int `yaml:"max_depth" json:"max_depth"` // 0 = unbounded recursion
}

type SafetyCfg struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	AllowedRoots   []string `yaml:"allowed_roots" json:"allowed_roots"`
	ProtectedPaths []string `yaml:"protected_paths" json:"protected_paths"`
}

type AuthCfg struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	SecretFile  string `yaml:"secret_file" json:"secret_file"`
	Secret      string `yaml:"secret" json:"-"`
	TokenExpiry string `yaml:"token_expiry" json:"token_expiry"`
	Username    string `yaml:"username" json:"username"`
	Password    string `yaml:"password" json:"-"`
}

type Config struct {
	Server         ServerCfg      `yaml:"server" json:"server"`
	Prometheus     PrometheusCfg  `yaml:"prometheus" json:"prometheus"`
	Logging        LoggingCfg     `yaml:"logging" json:"logging"`
	DatabasePath   string         `yaml:"database_path" json:"database_path"` // SQLite file for deletion history; "-" disables history
	History        HistoryCfg     `yaml:"history" json:"history"`
	ResourceLimits ResourceLimits `yaml:"resource_limits" json:"resource_limits"`
	Scan           ScanCfg        `yaml:"scan" json:"scan"`
	Safety         SafetyCfg      `yaml:"safety" json:"safety"`
	Auth           AuthCfg        `yaml:"auth" json:"auth"`
}

const (
	DefaultAddr         = "127.0.0.1:8080"
	DefaultConfigPath   = "/etc/dirsage/config.yaml"
	DefaultDatabasePath = "/var/lib/dirsage/history.db"
	DefaultLogDir       = "/var/log/dirsage"

	// Environment overrides for the JWT secret, checked in this order
	EnvJWTSecretFile = "DIRSAGE_JWT_SECRET_FILE"
	EnvJWTSecret     = "DIRSAGE_JWT_SECRET"
)

var (
	errInvalidPath     = errors.New("path must be absolute")
	errNegativeDepth   = errors.New("scan.max_depth cannot be negative")
	errNegativeCPU     = errors.New("resource_limits.max_cpu_percent must be between 0 and 100")
	errInvalidExpiry   = errors.New("auth.token_expiry is not a valid duration")
	errMissingPassword = errors.New("auth.password must be set when auth is enabled")
)

// Load reads, decodes and validates the YAML file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to Default when the file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Default returns a fully defaulted configuration.
func Default() *Config {
	cfg := &Config{}
	// An empty config never fails validation
	_ = cfg.validateAndDefault()
	return cfg
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) validateAndDefault() error {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ReadTimeoutSeconds <= 0 {
		c.Server.ReadTimeoutSeconds = 15
	}
	if c.Server.WriteTimeoutSeconds < 0 {
		c.Server.WriteTimeoutSeconds = 0
	}
	if c.Server.BodyLimitBytes <= 0 {
		c.Server.BodyLimitBytes = 1 << 20 // 1MB
	}
	if c.Server.RateLimit <= 0 {
		c.Server.RateLimit = 50
	}
	if c.Server.RateBurst <= 0 {
		c.Server.RateBurst = c.Server.RateLimit * 2
	}

	if c.Prometheus.Port == 0 {
		c.Prometheus.Port = 9090
	}

	if c.Logging.Dir == "" {
		c.Logging.Dir = DefaultLogDir
	}
	if c.Logging.File == "" {
		c.Logging.File = "dirsage.log"
	}
	if c.Logging.RotationDays <= 0 {
		c.Logging.RotationDays = 30
	}

	if c.DatabasePath == "" {
		c.DatabasePath = DefaultDatabasePath
	}
	if c.DatabasePath != "-" {
		cp, err := cleanAbsolute(c.DatabasePath)
		if err != nil {
			return fmt.Errorf("database_path: %w", err)
		}
		c.DatabasePath = cp
	}

	if c.History.RetentionDays <= 0 {
		c.History.RetentionDays = 90
	}
	if c.History.PruneIntervalMinutes <= 0 {
		c.History.PruneIntervalMinutes = 60
	}

	if c.ResourceLimits.MaxCPUPercent < 0 || c.ResourceLimits.MaxCPUPercent > 100 {
		return errNegativeCPU
	}

	if c.Scan.MaxDepth < 0 {
		return errNegativeDepth
	}

	for i, r := range c.Safety.AllowedRoots {
		cp, err := cleanAbsolute(r)
		if err != nil {
			return fmt.Errorf("safety.allowed_roots[%d]: %w", i, err)
		}
		c.Safety.AllowedRoots[i] = cp
	}
	for i, p := range c.Safety.ProtectedPaths {
		cp, err := cleanAbsolute(p)
		if err != nil {
			return fmt.Errorf("safety.protected_paths[%d]: %w", i, err)
		}
		c.Safety.ProtectedPaths[i] = cp
	}

	if c.Auth.TokenExpiry == "" {
		c.Auth.TokenExpiry = "24h"
	}
	if _, err := time.ParseDuration(c.Auth.TokenExpiry); err != nil {
		return fmt.Errorf("%w: %s", errInvalidExpiry, c.Auth.TokenExpiry)
	}
	if c.Auth.Username == "" {
		c.Auth.Username = "admin"
	}
	if c.Auth.Enabled && c.Auth.Password == "" {
		return errMissingPassword
	}

	return nil
}

func cleanAbsolute(p string) (string, error) {
	if p == "" {
		return "", errInvalidPath
	}
	cp := filepath.Clean(p)
	if !filepath.IsAbs(cp) {
		return "", fmt.Errorf("%w: %s", errInvalidPath, p)
	}
	return cp, nil
}

// HistoryEnabled reports whether deletions should be recorded to SQLite.
func (c *Config) HistoryEnabled() bool {
	return c.DatabasePath != "" && c.DatabasePath != "-"
}

func (c *Config) PrometheusAddress() string {
	return fmt.Sprintf(":%d", c.Prometheus.Port)
}

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutSeconds) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeoutSeconds) * time.Second
}

// TLSEnabled reports whether the API should serve HTTPS.
func (c *Config) TLSEnabled() bool {
	return c.Server.TLSCertFile != "" && c.Server.TLSKeyFile != ""
}

func (c *Config) PruneInterval() time.Duration {
	return time.Duration(c.History.PruneIntervalMinutes) * time.Minute
}

// TokenExpiry is only valid after validation.
func (c *Config) TokenExpiry() time.Duration {
	d, err := time.ParseDuration(c.Auth.TokenExpiry)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// JWTSecret resolves the signing secret: secret file env, secret env,
// configured file, configured literal.
func (c *Config) JWTSecret() (string, error) {
	if f := os.Getenv(EnvJWTSecretFile); f != "" {
		return readSecretFile(f)
	}
	if s := os.Getenv(EnvJWTSecret); s != "" {
		return s, nil
	}
	if c.Auth.SecretFile != "" {
		return readSecretFile(c.Auth.SecretFile)
	}
	return c.Auth.Secret, nil
}

func readSecretFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read secret file %s: %w", path, err)
	}
	return strings.TrimSpace(string(b)), nil
}
