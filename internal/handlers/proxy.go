package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ametnes/nesis-console/internal/logger"
	"github.com/ametnes/nesis-console/internal/request"
	"github.com/ametnes/nesis-console/internal/upstream"
	"github.com/ametnes/nesis-console/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Upstream performs calls against the core API.
type Upstream interface {
	Do(ctx context.Context, req upstream.Request) (*upstream.Response, error)
}

// Resource describes one proxied core API collection.
type Resource struct {
	// Noun is used in log events.
	Noun string
	// Route is the BFF path under /api; Path is the core API path. Both may
	// contain {module}.
	Route string
	Path  string
	// Upsert sends a body carrying an id as PUT {Path}/{id}.
	Upsert bool
	// Roles exposes GET {Route}/{id}/roles.
	Roles bool
}

// Resources is the BFF route table. Settings come first so that
// /{module}/settings is matched before any fixed collection.
var Resources = []Resource{
	{Noun: "setting", Route: "/{module}/settings", Path: "/modules/{module}/settings"},
	{Noun: "role", Route: "/roles", Path: "/roles", Upsert: true},
	{Noun: "user", Route: "/users", Path: "/users", Upsert: true, Roles: true},
	{Noun: "app", Route: "/apps", Path: "/apps", Upsert: true, Roles: true},
	{Noun: "task", Route: "/tasks", Path: "/tasks", Upsert: true},
	{Noun: "datasource", Route: "/datasources", Path: "/datasources", Upsert: true},
	{Noun: "prediction", Route: "/qanda/predictions", Path: "/modules/qanda/predictions"},
}

// ResourceProxy relays CRUD calls for one Resource to the core API.
type ResourceProxy struct {
	resource Resource
	upstream Upstream
	logger   *zap.Logger
}

// NewResourceProxy creates a proxy for resource
func NewResourceProxy(resource Resource, up Upstream, logger *zap.Logger) *ResourceProxy {
	return &ResourceProxy{resource: resource, upstream: up, logger: logger}
}

// RegisterResources registers every entry of Resources on r.
func RegisterResources(r *mux.Router, up Upstream, logger *zap.Logger) {
	for _, res := range Resources {
		NewResourceProxy(res, up, logger).RegisterRoutes(r)
	}
}

// RegisterRoutes registers the resource routes on the given router
// The router should already have the /api prefix
func (p *ResourceProxy) RegisterRoutes(r *mux.Router) {
	route := p.resource.Route
	r.HandleFunc(route, p.List).Methods("GET")
	r.HandleFunc(route, p.Save).Methods("POST")
	r.HandleFunc(route+"/{id}", p.Get).Methods("GET")
	r.HandleFunc(route+"/{id}", p.Delete).Methods("DELETE")
	if p.resource.Roles {
		r.HandleFunc(route+"/{id}/roles", p.ListRoles).Methods("GET")
	}
}

// List handles GET {route}
func (p *ResourceProxy) List(w http.ResponseWriter, r *http.Request) {
	path, ok := p.corePath(w, r)
	if !ok {
		return
	}
	p.forward(w, r, upstream.Request{
		Method:   http.MethodGet,
		Path:     path,
		RawQuery: r.URL.RawQuery,
	})
}

// Get handles GET {route}/{id}
func (p *ResourceProxy) Get(w http.ResponseWriter, r *http.Request) {
	path, ok := p.itemPath(w, r)
	if !ok {
		return
	}
	p.forward(w, r, upstream.Request{Method: http.MethodGet, Path: path, RawQuery: r.URL.RawQuery})
}

// ListRoles handles GET {route}/{id}/roles
func (p *ResourceProxy) ListRoles(w http.ResponseWriter, r *http.Request) {
	path, ok := p.itemPath(w, r)
	if !ok {
		return
	}
	p.forward(w, r, upstream.Request{Method: http.MethodGet, Path: path + "/roles", RawQuery: r.URL.RawQuery})
}

// Delete handles DELETE {route}/{id}
func (p *ResourceProxy) Delete(w http.ResponseWriter, r *http.Request) {
	path, ok := p.itemPath(w, r)
	if !ok {
		return
	}
	p.forward(w, r, upstream.Request{Method: http.MethodDelete, Path: path, RawQuery: r.URL.RawQuery})
}

// Save handles POST {route}. Upsert resources whose body carries an id are
// updated with PUT {path}/{id}.
func (p *ResourceProxy) Save(w http.ResponseWriter, r *http.Request) {
	path, ok := p.corePath(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil || !hasBody(body) {
		respondMessage(w, http.StatusBadRequest, messageBodyNotSupplied)
		return
	}

	method := http.MethodPost
	if p.resource.Upsert {
		if id, ok := bodyID(body); ok {
			method = http.MethodPut
			path += "/" + url.PathEscape(id)
		}
	}

	p.forward(w, r, upstream.Request{
		Method:   method,
		Path:     path,
		RawQuery: r.URL.RawQuery,
		Body:     body,
	})
}

func (p *ResourceProxy) forward(w http.ResponseWriter, r *http.Request, req upstream.Request) {
	req.Authorization = request.Authorization(r)

	p.logger.Info("proxying_request",
		zap.String("resource", p.resource.Noun),
		zap.String("method", req.Method),
		zap.String("path", logger.SanitizePath(req.Path)),
	)

	resp, err := p.upstream.Do(r.Context(), req)
	if err != nil {
		upErr := upstream.AsError(err)
		p.logger.Warn("proxy_request_failed",
			zap.String("resource", p.resource.Noun),
			zap.String("method", req.Method),
			zap.String("path", logger.SanitizePath(req.Path)),
			zap.Int("status", upErr.StatusCode()),
			zap.String("body", logger.SanitizeBody(upErr.Body)),
		)
		relayError(w, p.logger, err)
		return
	}
	relay(w, resp)
}

// corePath expands {module} in the resource path.
func (p *ResourceProxy) corePath(w http.ResponseWriter, r *http.Request) (string, bool) {
	path := p.resource.Path
	if !strings.Contains(path, "{module}") {
		return path, true
	}
	module := mux.Vars(r)["module"]
	if err := validation.ValidateResourceID(module); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request. module not supplied")
		return "", false
	}
	return strings.ReplaceAll(path, "{module}", url.PathEscape(module)), true
}

func (p *ResourceProxy) itemPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	path, ok := p.corePath(w, r)
	if !ok {
		return "", false
	}
	id := mux.Vars(r)["id"]
	if err := validation.ValidateResourceID(id); err != nil {
		respondMessage(w, http.StatusBadRequest, messageInvalidID)
		return "", false
	}
	return path + "/" + url.PathEscape(id), true
}

func hasBody(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	return trimmed != "" && trimmed != "null"
}

// bodyID returns the id of a JSON object body when it is a non-empty
// string or a number.
func bodyID(body []byte) (string, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return "", false
	}
	raw, ok := obj["id"]
	if !ok {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if _, err := strconv.ParseFloat(n.String(), 64); err == nil {
			return n.String(), true
		}
	}
	return "", false
}
