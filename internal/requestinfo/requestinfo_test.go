package requestinfo

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"xff first valid", map[string]string{"X-Forwarded-For": "junk, 203.0.113.7, 10.0.0.1"}, "10.0.0.2:5555", "203.0.113.7"},
		{"x-real-ip", map[string]string{"X-Real-Ip": "198.51.100.4"}, "10.0.0.2:5555", "198.51.100.4"},
		{"remote addr", nil, "192.0.2.9:443", "192.0.2.9"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			r.RemoteAddr = c.remote
			for k, v := range c.header {
				r.Header.Set(k, v)
			}
			if got := clientIP(r).String(); got != c.want {
				t.Fatalf("clientIP = %s, want %s", got, c.want)
			}
		})
	}
}

func TestEnrichAttachesInfo(t *testing.T) {
	var got *Info
	h := Enrich(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	r.Header.Set("User-Agent", "curl/8.4.0")
	h.ServeHTTP(httptest.NewRecorder(), r)

	if got == nil {
		t.Fatal("Enrich did not attach Info")
	}
	if got.IP != "192.0.2.1" || got.UserAgent != "curl/8.4.0" {
		t.Fatalf("unexpected info %+v", got)
	}
	m := got.Map()
	if m["ip"] != "192.0.2.1" {
		t.Fatalf("Map() = %v", m)
	}
	if _, ok := m["country"]; ok {
		t.Fatal("country set without a GeoLite2 database")
	}
}

func TestInitGeo(t *testing.T) {
	if err := InitGeo(""); err != nil {
		t.Fatalf("empty path should disable lookups: %v", err)
	}
	if err := InitGeo("/nonexistent/GeoLite2-City.mmdb"); err == nil {
		t.Fatal("expected error for missing database")
	}
}
