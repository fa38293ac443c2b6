//
//  internal/requestinfo/requestinfo.go
//
//  Per-request client metadata (IP, country, user-agent summary) attached
//  to stored form submissions as their `source` field.  The struct is
//  inert and safe to log or JSON-encode.
//
//  Dependencies
//  • github.com/avct/uasurfer           (via internal/ua)
//  • github.com/oschwald/geoip2-golang (MaxMind lookup)
//

package requestinfo

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/oschwald/geoip2-golang"

	"github.com/yanizio/adept-gateway/internal/ua"
)

//
//  -----------------------------
//  Struct definitions
//  -----------------------------
//

// Info describes who sent the request.  Country is empty when no GeoLite2
// database is loaded or the address has no match.
type Info struct {
	IP         string    `json:"ip,omitempty"`
	CountryISO string    `json:"country,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	UA         ua.Info   `json:"ua"`
	Received   time.Time `json:"received_at"`
}

// Map renders Info as a plain JSON object for embedding in a record.
func (i *Info) Map() map[string]any {
	if i == nil {
		return nil
	}
	m := map[string]any{
		"ip":          i.IP,
		"user_agent":  i.UserAgent,
		"browser":     i.UA.Browser,
		"device":      i.UA.Device,
		"is_bot":      i.UA.IsBot,
		"received_at": i.Received.UTC().Format(time.RFC3339),
	}
	if i.CountryISO != "" {
		m["country"] = i.CountryISO
	}
	return m
}

//
//  -----------------------------
//  Package-level state
//  -----------------------------
//

// geoReader is a process-wide MaxMind handle.  Reads are concurrency-safe.
var geoReader atomic.Pointer[geoip2.Reader]

// InitGeo opens the GeoLite2 database at dbPath.  An empty path leaves
// country lookups disabled.
func InitGeo(dbPath string) error {
	if dbPath == "" {
		return nil
	}
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return fmt.Errorf("requestinfo: open GeoLite2 DB: %w", err)
	}
	if old := geoReader.Swap(r); old != nil {
		_ = old.Close()
	}
	return nil
}

// CloseGeo releases the database, if one was opened.
func CloseGeo() error {
	if r := geoReader.Swap(nil); r != nil {
		return r.Close()
	}
	return nil
}

//
//  -----------------------------
//  Context helpers
//  -----------------------------
//

type ctxKey struct{} // unexported, collision-proof

// WithInfo returns a copy of ctx carrying info.
func WithInfo(ctx context.Context, info *Info) context.Context {
	return context.WithValue(ctx, ctxKey{}, info)
}

// FromContext returns the pointer stored by Enrich, or nil.
func FromContext(ctx context.Context) *Info {
	v, _ := ctx.Value(ctxKey{}).(*Info)
	return v
}

// lookupCountry returns the ISO country code for ip, best effort.
func lookupCountry(ip net.IP) string {
	r := geoReader.Load()
	if r == nil || ip == nil {
		return ""
	}
	rec, err := r.Country(ip)
	if err != nil {
		return ""
	}
	return rec.Country.IsoCode
}
