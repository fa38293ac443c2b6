// internal/vault/vault.go
//
// Vault client wrapper for the Adept gateway.
//
// Context
// -------
//   - Wraps the HashiCorp Vault Go SDK behind a small, concurrency-safe
//     client with KV-v2 reads and per-key caching.
//   - Configuration values of the form `vault:<mount>/<path>#<key>` are
//     resolved through Resolve, so DSN passwords never live in flat files.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx, zap.S().Infof)          // during boot.
//  2. pw,  err := cli.Resolve(ctx, "vault:secret/db#pw") // config loader.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
)

// RefPrefix marks a configuration value that lives in Vault.
const RefPrefix = "vault:"

// ErrBadRef is returned for references missing a path or `#key`.
var ErrBadRef = errors.New("vault: malformed reference")

//
// SECTION 1.  Public façade
//

// Client is safe for concurrent use.  Zero value is invalid.
type Client struct {
	api   *vault.Client
	logFn func(string, ...any)

	cacheMu sync.RWMutex
	cache   map[string]cached // canonical path#key → value + expiry.
}

type cached struct {
	val string
	exp time.Time
}

// New constructs a Vault client from the standard environment.
//
// Environment expectations
// ------------------------
// • VAULT_ADDR   – scheme and host of the Vault server.
// • VAULT_TOKEN  – token used for KV reads.
func New(ctx context.Context, logFn func(string, ...any)) (*Client, error) {
	if logFn == nil {
		logFn = func(string, ...any) {}
	}

	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}

	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	logFn("vault: client ready, addr=%s", cfg.Address)
	return &Client{
		api:   apiCli,
		logFn: logFn,
		cache: make(map[string]cached),
	}, nil
}

// Resolve fetches the value behind a `vault:` reference.  Results are cached
// for five minutes.
func (c *Client) Resolve(ctx context.Context, ref string) (string, error) {
	path, key, err := ParseRef(ref)
	if err != nil {
		return "", err
	}
	return c.GetKV(ctx, path, key, 5*time.Minute)
}

// GetKV fetches a single key from a KV-v2 secret.  If ttl > 0 the result is
// cached for that duration.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", ErrBadRef
	}

	canonical := secretPath + "#" + key

	if ttl > 0 {
		c.cacheMu.RLock()
		if cv, ok := c.cache[canonical]; ok && time.Now().Before(cv.exp) {
			c.cacheMu.RUnlock()
			return cv.val, nil
		}
		c.cacheMu.RUnlock()
	}

	mount, rel := splitMount(secretPath)
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}

	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s#%s is not a string", secretPath, key)
	}

	if ttl > 0 {
		c.cacheMu.Lock()
		c.cache[canonical] = cached{val: sval, exp: time.Now().Add(ttl)}
		c.cacheMu.Unlock()
	}
	c.logFn("vault: resolved %s", canonical)

	return sval, nil
}

//
// SECTION 2.  Helpers
//

// IsRef reports whether s is a `vault:` reference.
func IsRef(s string) bool { return strings.HasPrefix(s, RefPrefix) }

// ParseRef splits `vault:secret/app/db#password` into
// ("secret/app/db", "password").
func ParseRef(ref string) (path, key string, err error) {
	if !IsRef(ref) {
		return "", "", ErrBadRef
	}
	body := strings.TrimPrefix(ref, RefPrefix)
	i := strings.LastIndexByte(body, '#')
	if i <= 0 || i == len(body)-1 {
		return "", "", ErrBadRef
	}
	return body[:i], body[i+1:], nil
}

func splitMount(p string) (mount, rel string) {
	if p == "" {
		return "", ""
	}
	parts := strings.SplitN(p, "/", 2)
	mount = parts[0]
	if len(parts) == 2 {
		rel = parts[1]
	}
	return
}
