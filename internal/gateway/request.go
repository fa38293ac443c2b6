package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
)

// maxBody caps how much of a request body is read.
const maxBody = 1 << 20

// Request is the uniform shape every handler receives.  All fields are
// optional; handlers decide what absence means.
type Request struct {
	Resource string
	Action   string
	Slug     string
	ID       string
	Data     map[string]any
	Filters  map[string]any
}

// Normalize reads r into a Request.  A missing, oversized, or malformed
// JSON body is treated as an empty object.  For bodyless GETs the scalar
// fields fall back to query parameters.
func Normalize(r *http.Request) Request {
	body := map[string]any{}
	if r.Body != nil {
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
		if err == nil && len(raw) > 0 && len(raw) <= maxBody {
			if json.Unmarshal(raw, &body) != nil || body == nil {
				body = map[string]any{}
			}
		}
	}

	req := Request{
		Resource: scalar(body["resource"]),
		Action:   scalar(body["action"]),
		Slug:     scalar(body["slug"]),
		ID:       scalar(body["id"]),
		Data:     object(body["data"]),
		Filters:  object(body["filters"]),
	}

	if r.Method == http.MethodGet && len(body) == 0 {
		q := r.URL.Query()
		req.Resource = q.Get("resource")
		req.Action = q.Get("action")
		req.Slug = q.Get("slug")
		req.ID = q.Get("id")
	}
	return req
}

// scalar renders JSON strings and numbers as text; anything else is "".
func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

// object returns v when it is a JSON object.
func object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}
