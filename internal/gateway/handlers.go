// internal/gateway/handlers.go
//
// Resource handlers.
//
// Every query and mutation below is scoped to c.TenantID.  Request data can
// narrow a filter or supply record fields, but the tenant always comes from
// the authenticated caller and is written last so it cannot be overridden.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/yanizio/adept-gateway/internal/auth"
	"github.com/yanizio/adept-gateway/internal/logger"
	"github.com/yanizio/adept-gateway/internal/metrics"
	"github.com/yanizio/adept-gateway/internal/requestinfo"
	"github.com/yanizio/adept-gateway/internal/slug"
	"github.com/yanizio/adept-gateway/internal/store"
)

// Response bodies.
type dataBody struct {
	Data any `json:"data"`
}

type successBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Submission status assigned on creation.
const statusNew = "new"

/*──────────────────────────── read ─────────────────────────────────────────*/

func (g *Gateway) list(res resource) handlerFunc {
	return func(ctx context.Context, c *auth.Caller, req Request) (any, error) {
		f := store.Filter{}
		if res.status != "" {
			f["status"] = res.status
		}
		for k, v := range req.Filters {
			f[k] = v
		}
		f[store.FieldTenant] = c.TenantID

		recs, err := g.records.Filter(ctx, res.entity, f, res.sort, 0)
		if errors.Is(err, store.ErrBadField) {
			return nil, fail(KindBadRequest, "invalid filter field")
		}
		if err != nil {
			return nil, internal(fmt.Errorf("%s list: %w", res.name, err))
		}
		return dataBody{Data: recs}, nil
	}
}

func (g *Gateway) get(res resource) handlerFunc {
	return func(ctx context.Context, c *auth.Caller, req Request) (any, error) {
		if req.Slug == "" {
			return dataBody{}, nil
		}
		rec, err := g.first(ctx, res.entity, store.Filter{
			"status": res.status,
			"slug":   req.Slug,
		}, c.TenantID)
		if err != nil {
			return nil, internal(fmt.Errorf("%s get: %w", res.name, err))
		}
		if rec == nil {
			return dataBody{}, nil
		}
		return dataBody{Data: rec}, nil
	}
}

// first returns the first record matching f within tenantID, or nil.  An
// empty status value is dropped from f.
func (g *Gateway) first(ctx context.Context, entity string, f store.Filter, tenantID string) (store.Record, error) {
	if s, ok := f["status"].(string); ok && s == "" {
		delete(f, "status")
	}
	f[store.FieldTenant] = tenantID

	recs, err := g.records.Filter(ctx, entity, f, "", 1)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0], nil
}

/*──────────────────────────── write ────────────────────────────────────────*/

func (g *Gateway) create(res resource) handlerFunc {
	return func(ctx context.Context, c *auth.Caller, req Request) (any, error) {
		rec := store.Record{}
		for k, v := range req.Data {
			rec[k] = v
		}
		if s, _ := rec["slug"].(string); s == "" {
			if title := firstString(rec, "title", "name"); title != "" {
				rec["slug"] = slug.Make(title)
			}
		}
		rec[store.FieldTenant] = c.TenantID

		out, err := g.records.Create(ctx, res.entity, rec)
		if err != nil {
			return nil, internal(fmt.Errorf("%s create: %w", res.name, err))
		}
		logger.FromContext(ctx).Infow("record created",
			"entity", res.entity, "id", out[store.FieldID], "tenant", c.TenantID, "key_id", c.KeyID)
		return dataBody{Data: out}, nil
	}
}

func (g *Gateway) update(res resource) handlerFunc {
	return func(ctx context.Context, c *auth.Caller, req Request) (any, error) {
		if req.ID == "" {
			return nil, fail(KindBadRequest, "id is required")
		}
		patch := store.Record{}
		for k, v := range req.Data {
			patch[k] = v
		}
		patch[store.FieldTenant] = c.TenantID

		out, err := g.records.Update(ctx, res.entity, c.TenantID, req.ID, patch)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fail(KindRecordNotFound, "")
		}
		if err != nil {
			return nil, internal(fmt.Errorf("%s update: %w", res.name, err))
		}
		logger.FromContext(ctx).Infow("record updated",
			"entity", res.entity, "id", req.ID, "tenant", c.TenantID, "key_id", c.KeyID)
		return dataBody{Data: out}, nil
	}
}

/*──────────────────────────── forms ────────────────────────────────────────*/

// submit stores one submission against an active form.  It is the only
// route with no permission requirement.
func (g *Gateway) submit(ctx context.Context, c *auth.Caller, req Request) (any, error) {
	if req.Slug == "" {
		return nil, fail(KindFormNotFound, "")
	}
	form, err := g.first(ctx, store.EntityForm, store.Filter{
		"status": forms.status,
		"slug":   req.Slug,
	}, c.TenantID)
	if err != nil {
		return nil, internal(fmt.Errorf("forms submit lookup: %w", err))
	}
	if form == nil {
		return nil, fail(KindFormNotFound, "")
	}

	data := req.Data
	if data == nil {
		data = map[string]any{}
	}
	sub := store.Record{
		"form_id":         form[store.FieldID],
		"form_name":       firstString(form, "name", "title"),
		"data":            data,
		"status":          statusNew,
		store.FieldTenant: c.TenantID,
	}
	if info := requestinfo.FromContext(ctx); info != nil {
		sub["source"] = info.Map()
	}

	out, err := g.records.Create(ctx, store.EntitySubmission, sub)
	if err != nil {
		return nil, internal(fmt.Errorf("forms submit: %w", err))
	}
	metrics.SubmissionsTotal.Inc()
	logger.FromContext(ctx).Infow("form submission stored",
		"form", req.Slug, "id", out[store.FieldID], "tenant", c.TenantID, "anonymous", c.Anonymous)

	msg := firstString(form, "success_message")
	if msg == "" {
		msg = g.settingsFrom(ctx).DefaultSuccessMessage
	}
	return successBody{Success: true, Message: msg}, nil
}

// firstString returns the first non-empty string among rec[keys...].
func firstString(rec map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := rec[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
