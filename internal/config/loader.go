// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file under `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `ADEPT_`, where `__` maps to “.”
     (e.g., `ADEPT_GATEWAY__PUBLIC_SUBMIT → gateway.public_submit`).

After merging, the tree is unmarshalled into typed structs, defaulted,
Vault references are resolved, the result is validated, and finally it is
cached in an `atomic.Pointer` for lock-free reads.

Instrumentation
---------------
  • DEBUG spans: root discovery, YAML read.
  • ERROR spans: YAML parse, env overlay, unmarshal, secret, validation.
  • INFO  span : final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/adept-gateway/internal/vault"
)

const (
	defaultListenAddr     = ":8080"
	defaultSuccessMessage = "Thank you!"
	secretTimeout         = 10 * time.Second
)

var current atomic.Pointer[Config]

// resolveSecret turns a `vault:` reference into its plain value.  Tests
// swap it out to avoid a live Vault.
var resolveSecret = func(ctx context.Context, ref string) (string, error) {
	cli, err := vault.New(ctx, zap.S().Infof)
	if err != nil {
		return "", err
	}
	return cli.Resolve(ctx, ref)
}

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves ADEPT_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to the executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv("ADEPT_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, resolves secrets, validates, and
// caches Config.
func Load() (*Config, error) {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, fmt.Errorf("load %s: %w", yamlPath, err)
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: ADEPT_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider("ADEPT_", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, "ADEPT_"), "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Paths.Root = root
	applyDefaults(&cfg)

	ctx, cancel := context.WithTimeout(context.Background(), secretTimeout)
	defer cancel()
	if err := resolveSecrets(ctx, &cfg); err != nil {
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"driver", cfg.Database.Driver,
		"public_submit", cfg.Gateway.PublicSubmit,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func applyDefaults(c *Config) {
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = defaultListenAddr
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverMemory
	}
	if c.Database.MaxOpen == 0 {
		c.Database.MaxOpen = 15
	}
	if c.Database.MaxIdle == 0 {
		c.Database.MaxIdle = 5
	}
	if c.Gateway.DefaultSuccessMessage == "" {
		c.Gateway.DefaultSuccessMessage = defaultSuccessMessage
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "logs"
	}
	if !filepath.IsAbs(c.Log.Dir) {
		c.Log.Dir = filepath.Join(c.Paths.Root, c.Log.Dir)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Store.SeedFile != "" && !filepath.IsAbs(c.Store.SeedFile) {
		c.Store.SeedFile = filepath.Join(c.Paths.Root, c.Store.SeedFile)
	}
}

// resolveSecrets swaps `vault:` references for their values and renders the
// DSN template.
func resolveSecrets(ctx context.Context, c *Config) error {
	if vault.IsRef(c.Database.Password) {
		pw, err := resolveSecret(ctx, c.Database.Password)
		if err != nil {
			return fmt.Errorf("database.password: %w", err)
		}
		c.Database.Password = pw
	}
	if vault.IsRef(c.Database.DSN) {
		dsn, err := resolveSecret(ctx, c.Database.DSN)
		if err != nil {
			return fmt.Errorf("database.dsn: %w", err)
		}
		c.Database.DSN = dsn
	}
	// Only the placeholder is substituted; other escapes such as %2F stay.
	if strings.Count(c.Database.DSN, "%s") == 1 {
		c.Database.DSN = strings.Replace(c.Database.DSN, "%s", c.Database.Password, 1)
	}
	return nil
}

// Get returns the most recently loaded Config, or nil before Load.
func Get() *Config { return current.Load() }

// Reload calls Load again and swaps the cached pointer.
func Reload() error { _, err := Load(); return err }
