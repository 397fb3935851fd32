package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/iscore/vendoreval/internal/middleware"
	"github.com/iscore/vendoreval/internal/services"
)

// GET /api/vendors?context=existing|new — selection list for the caller
// POST /api/vendors — register a vendor (admin)
func (rt *Router) handleVendors(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		uid, ok := rt.uid(w, r)
		if !ok {
			return
		}
		evalCtx, err := services.ParseEvalContext(r.URL.Query().Get("context"))
		if err != nil {
			rt.writeError(w, err)
			return
		}
		list, err := rt.vendors.ListSelectable(evalCtx, uid)
		if err != nil {
			rt.writeError(w, err)
			return
		}
		rt.writeJSON(w, map[string]any{"vendors": list})
	case http.MethodPost:
		c, ok := middleware.ClaimsFromContext(r.Context())
		if !ok || c.Role != "admin" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		var req struct {
			Name  string `json:"name"`
			IsNew bool   `json:"is_new"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		v, err := rt.vendors.CreateVendor(req.Name, req.IsNew)
		if err != nil {
			rt.writeError(w, err)
			return
		}
		rt.writeJSON(w, v)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET /api/users — access management list (admin)
func (rt *Router) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	users, err := rt.access.ListUsers()
	if err != nil {
		rt.writeError(w, err)
		return
	}
	rt.writeJSON(w, map[string]any{"users": users})
}

// POST /api/users/{uid}/access — toggle one capability flag (admin)
func (rt *Router) handleUserScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/users/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "access" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Key string `json:"key"` // "prerequisite" or "evaluation"
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	u, err := rt.access.ToggleAccess(parts[0], req.Key)
	if err != nil {
		rt.writeError(w, err)
		return
	}
	rt.writeJSON(w, u)
}

// GET /api/settings/window — current evaluation period (null when unset)
// PUT /api/settings/window — set the period (admin)
func (rt *Router) handleWindow(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		win, err := rt.settings.Window()
		if err != nil {
			rt.writeError(w, err)
			return
		}
		rt.writeJSON(w, map[string]any{"window": win})
	case http.MethodPut:
		c, ok := middleware.ClaimsFromContext(r.Context())
		if !ok || c.Role != "admin" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		var req struct {
			Start time.Time `json:"start"`
			End   time.Time `json:"end"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := rt.settings.SaveWindow(req.Start, req.End); err != nil {
			rt.writeError(w, err)
			return
		}
		rt.writeJSON(w, map[string]any{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
