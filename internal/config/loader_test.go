package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeConf(t *testing.T, body string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "conf"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "conf", "global.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("ADEPT_ROOT", root)
	return root
}

func TestLoad_DefaultsAndEnvOverlay(t *testing.T) {
	root := writeConf(t, `
http:
  listen_addr: "127.0.0.1:9090"
database:
  driver: memory
store:
  seed_file: conf/seed.yaml
`)
	t.Setenv("ADEPT_GATEWAY__PUBLIC_SUBMIT", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.ListenAddr != "127.0.0.1:9090" {
		t.Errorf("listen_addr = %q", cfg.HTTP.ListenAddr)
	}
	if !cfg.Gateway.PublicSubmit {
		t.Errorf("env overlay did not set gateway.public_submit")
	}
	if cfg.Gateway.DefaultSuccessMessage != "Thank you!" {
		t.Errorf("default success message = %q", cfg.Gateway.DefaultSuccessMessage)
	}
	if want := filepath.Join(root, "conf", "seed.yaml"); cfg.Store.SeedFile != want {
		t.Errorf("seed_file = %q, want %q", cfg.Store.SeedFile, want)
	}
	if Get() != cfg {
		t.Errorf("Get did not return the cached config")
	}
}

func TestLoad_MySQLRequiresDSN(t *testing.T) {
	writeConf(t, `
database:
  driver: mysql
`)
	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for mysql without dsn")
	}
}

func TestLoad_VaultPasswordRendersDSN(t *testing.T) {
	writeConf(t, `
database:
  driver: mysql
  dsn: "gateway:%s@tcp(127.0.0.1:3306)/gateway?parseTime=true"
  password: "vault:secret/gateway/db#password"
`)
	orig := resolveSecret
	t.Cleanup(func() { resolveSecret = orig })
	resolveSecret = func(_ context.Context, ref string) (string, error) {
		if ref != "vault:secret/gateway/db#password" {
			t.Fatalf("unexpected ref %q", ref)
		}
		return "s3cret", nil
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := "gateway:s3cret@tcp(127.0.0.1:3306)/gateway?parseTime=true"
	if cfg.Database.DSN != want {
		t.Fatalf("dsn = %q, want %q", cfg.Database.DSN, want)
	}
}

func TestLoad_DSNKeepsPercentEscapes(t *testing.T) {
	writeConf(t, `
database:
  driver: mysql
  dsn: "gateway:%s@tcp(127.0.0.1:3306)/gateway?parseTime=true&loc=Europe%2FParis"
  password: "pa%ss"
`)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := "gateway:pa%ss@tcp(127.0.0.1:3306)/gateway?parseTime=true&loc=Europe%2FParis"
	if cfg.Database.DSN != want {
		t.Fatalf("dsn = %q, want %q", cfg.Database.DSN, want)
	}
}

func TestLoad_MissingYAML(t *testing.T) {
	t.Setenv("ADEPT_ROOT", t.TempDir())
	if _, err := Load(); err == nil {
		t.Fatal("expected error when conf/global.yaml is absent")
	}
}
