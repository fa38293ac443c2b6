// internal/gateway/routes.go
//
// Static dispatch table.
//
// Context
// -------
// Every reachable (resource, action) pair is listed here exactly once with
// its handler and the scope it requires.  Anything not in the table fails
// closed with KindRouteNotFound; a listed route whose scope the caller
// lacks fails with KindForbidden.  The boundary decides whether those two
// look different on the wire.
//
// Table
// -----
//   pages, products, blog  list/get → <res>:read   create/update → <res>:write
//   forms                  list/get → forms:read   submit → public
//   submissions            list     → submissions:read
package gateway

import (
	"context"

	"github.com/yanizio/adept-gateway/internal/acl"
	"github.com/yanizio/adept-gateway/internal/auth"
	"github.com/yanizio/adept-gateway/internal/store"
)

// Actions.
const (
	ActionList   = "list"
	ActionGet    = "get"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionSubmit = "submit"
)

// handlerFunc runs one routed action for an authenticated caller.
type handlerFunc func(ctx context.Context, c *auth.Caller, req Request) (any, error)

type routeKey struct {
	resource string
	action   string
}

type route struct {
	handler    handlerFunc
	permission string // "" only when public
	public     bool
}

// resource describes one content type exposed by the gateway.
type resource struct {
	name   string // wire name, also the scope prefix
	entity string // store entity
	status string // visible status for list/get; "" means unfiltered
	sort   string // list order
}

var (
	pages       = resource{name: "pages", entity: store.EntityPage, status: "published"}
	products    = resource{name: "products", entity: store.EntityProduct, status: "published"}
	blog        = resource{name: "blog", entity: store.EntityBlogPost, status: "published", sort: "-published_date"}
	forms       = resource{name: "forms", entity: store.EntityForm, status: "active"}
	submissions = resource{name: "submissions", entity: store.EntitySubmission, sort: "-" + store.FieldCreated}
)

// buildRoutes assembles the table for g.
func (g *Gateway) buildRoutes() map[routeKey]route {
	t := make(map[routeKey]route, 16)
	add := func(res resource, action, verb string, h handlerFunc) {
		t[routeKey{res.name, action}] = route{handler: h, permission: acl.Required(res.name, verb)}
	}

	for _, res := range []resource{pages, products, blog} {
		add(res, ActionList, acl.VerbRead, g.list(res))
		add(res, ActionGet, acl.VerbRead, g.get(res))
		add(res, ActionCreate, acl.VerbWrite, g.create(res))
		add(res, ActionUpdate, acl.VerbWrite, g.update(res))
	}

	add(forms, ActionList, acl.VerbRead, g.list(forms))
	add(forms, ActionGet, acl.VerbRead, g.get(forms))
	t[routeKey{forms.name, ActionSubmit}] = route{handler: g.submit, public: true}

	add(submissions, ActionList, acl.VerbRead, g.list(submissions))
	return t
}

// lookup returns the route for req without checking permissions.
func (g *Gateway) lookup(req Request) (route, bool) {
	rt, ok := g.routes[routeKey{req.Resource, req.Action}]
	return rt, ok
}

// resolve picks the route for req and applies the permission gate.
func (g *Gateway) resolve(c *auth.Caller, req Request) (route, error) {
	rt, ok := g.lookup(req)
	if !ok {
		return route{}, fail(KindRouteNotFound, "")
	}
	if rt.public {
		return rt, nil
	}
	if c.Anonymous || !c.HasPermission(rt.permission) {
		return route{}, fail(KindForbidden, "")
	}
	return rt, nil
}
