// internal/requestinfo/middleware.go
//
// HTTP middleware that attaches *Info to each gateway request.
//
/*
Context
--------
The gateway mounts Enrich in front of its single endpoint.  For every
request it:

  1. Extracts the left-most client IP from X-Forwarded-For or X-Real-IP,
     falling back to `r.RemoteAddr`.
  2. Summarises the User-Agent header through internal/ua.
  3. Looks up the country when a GeoLite2 database is loaded.
  4. Stores the result in the request context, where the form submission
     handler picks it up.

Notes
-----
  • Nothing here fails a request; missing data leaves fields empty.
  • Oxford commas, two spaces after periods.
*/
package requestinfo

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yanizio/adept-gateway/internal/ua"
)

/*──────────────────────────── middleware ───────────────────────────────────*/

// Enrich wraps an http.Handler, attaches *Info, and forwards.
func Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithInfo(r.Context(), FromRequest(r))))
	})
}

// FromRequest builds Info for r.
func FromRequest(r *http.Request) *Info {
	ip := clientIP(r)
	info := &Info{
		UserAgent:  r.UserAgent(),
		UA:         ua.Parse(r.UserAgent()),
		CountryISO: lookupCountry(ip),
		Received:   time.Now().UTC(),
	}
	if ip != nil {
		info.IP = ip.String()
	}
	return info
}

/*──────────────────────────── client IP helper ─────────────────────────────*/

// clientIP extracts the left-most address from X-Forwarded-For or
// X-Real-IP, falling back to r.RemoteAddr ("ip:port").
func clientIP(r *http.Request) net.IP {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip
			}
		}
	}
	if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
		if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(r.RemoteAddr)
}
