package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yanizio/adept-gateway/internal/logger"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusTeapot)
})

func TestSecurityHeadersSentBeforeBody(t *testing.T) {
	w := httptest.NewRecorder()
	Security(ok).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusTeapot {
		t.Fatalf("status = %d", w.Code)
	}
	for _, kv := range securityHeaders {
		if got := w.Result().Header.Get(kv[0]); got != kv[1] {
			t.Errorf("%s = %q, want %q", kv[0], got, kv[1])
		}
	}
}

func TestForceHTTPS(t *testing.T) {
	h := ForceHTTPS(true)(ok)

	r := httptest.NewRequest(http.MethodGet, "http://api.example.com/api?x=1", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusPermanentRedirect || w.Header().Get("Location") != "https://api.example.com/api?x=1" {
		t.Fatalf("redirect = %d %q", w.Code, w.Header().Get("Location"))
	}

	for _, r := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "http://localhost:8080/", nil),
		httptest.NewRequest(http.MethodOptions, "http://api.example.com/api", nil),
		func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "http://api.example.com/", nil)
			r.Header.Set("X-Forwarded-Proto", "https")
			return r
		}(),
		func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "https://api.example.com/", nil)
			r.TLS = &tls.ConnectionState{}
			return r
		}(),
	} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusTeapot {
			t.Errorf("%s: status = %d, want passthrough", r.URL, w.Code)
		}
	}

	w = httptest.NewRecorder()
	ForceHTTPS(false)(ok).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://api.example.com/", nil))
	if w.Code != http.StatusTeapot {
		t.Fatalf("disabled middleware redirected: %d", w.Code)
	}
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core).Sugar()

	var sawLogger bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawLogger = logger.FromContext(r.Context()) != zap.S()
		w.WriteHeader(http.StatusCreated)
	})
	h := chimw.RequestID(AccessLog(base)(inner))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api", nil))

	if !sawLogger {
		t.Fatal("request logger not attached to context")
	}
	entries := logs.FilterMessage("http request").All()
	if len(entries) != 1 {
		t.Fatalf("got %d access entries", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusCreated) || fields["req_id"] == "" {
		t.Fatalf("unexpected fields %v", fields)
	}
}
