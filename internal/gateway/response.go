package gateway

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// CORS values sent on every gateway response.
const (
	corsOrigin  = "*"
	corsMethods = "GET, POST, PUT, DELETE, OPTIONS"
	corsHeaders = "Content-Type, X-API-Key, X-Tenant-ID"
)

func setCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", corsOrigin)
	h.Set("Access-Control-Allow-Methods", corsMethods)
	h.Set("Access-Control-Allow-Headers", corsHeaders)
}

// writeJSON encodes v with status.  Encoding failures after the header is
// sent can only be logged.
func writeJSON(w http.ResponseWriter, log *zap.SugaredLogger, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnw("response encode failed", "status", status, "err", err)
	}
}
