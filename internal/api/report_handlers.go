package api

import (
	"net/http"
	"strings"

	"github.com/iscore/vendoreval/internal/services"
)

// GET /api/reports/vendor?name=...
func (rt *Router) handleVendorReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		rt.writeError(w, services.NewInvalidError("name required"))
		return
	}
	report, err := rt.reports.VendorReport(name)
	if err != nil {
		rt.writeError(w, err)
		return
	}
	rt.writeJSON(w, report)
}

// GET /api/reports/overview
func (rt *Router) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rows, err := rt.reports.Overview()
	if err != nil {
		rt.writeError(w, err)
		return
	}
	rt.writeJSON(w, map[string]any{"vendors": rows})
}

// GET /api/reports/new-vendors
func (rt *Router) handleNewVendors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	board, err := rt.reports.NewVendorStatusBoard()
	if err != nil {
		rt.writeError(w, err)
		return
	}
	rt.writeJSON(w, board)
}

// GET /api/reports/export.csv — long-format dump of every evaluation (admin)
func (rt *Router) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	b, err := rt.reports.ExportEvaluationsCSV()
	if err != nil {
		rt.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=evaluations.csv")
	_, _ = w.Write(b)
}
