package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/iscore/vendoreval/internal/config"
	"github.com/iscore/vendoreval/internal/middleware"
	"github.com/iscore/vendoreval/internal/services"
	"github.com/iscore/vendoreval/internal/store"
)

// Router wires the HTTP surface to the services. All domain rules live in
// the services package; handlers only decode, dispatch, and encode.
type Router struct {
	log       *zap.Logger
	auth      *services.AuthService
	access    *services.AccessService
	settings  *services.SettingsService
	vendors   *services.VendorService
	workflows *services.WorkflowManager
	reports   *services.ReportService
}

func NewRouter(log *zap.Logger, st store.Store, cfg *config.Config) *Router {
	questions := services.NewQuestionService(st)
	access := services.NewAccessService(st)
	settings := services.NewSettingsService(st)
	vendors := services.NewVendorService(st)
	signer := services.TokenSigner(middleware.SignToken)
	return &Router{
		log:       log,
		auth:      services.NewAuthService(st, signer),
		access:    access,
		settings:  settings,
		vendors:   vendors,
		workflows: services.NewWorkflowManager(st, questions, access, settings, vendors),
		reports:   services.NewReportService(st, cfg.DepartmentMaxScores, cfg.LowScoreThreshold),
	}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/register", rt.handleRegister) // POST
	mux.HandleFunc("/api/auth/login", rt.handleLogin)       // POST

	mux.Handle("/api/vendors", middleware.RequireAuth(http.HandlerFunc(rt.handleVendors)))            // GET, POST
	mux.Handle("/api/users", middleware.RequireAdmin(http.HandlerFunc(rt.handleUsers)))               // GET
	mux.Handle("/api/users/", middleware.RequireAdmin(http.HandlerFunc(rt.handleUserScoped)))         // POST /api/users/{uid}/access
	mux.Handle("/api/settings/window", middleware.RequireAuth(http.HandlerFunc(rt.handleWindow)))     // GET, PUT

	mux.Handle("/api/prequal/", middleware.RequireAuth(http.HandlerFunc(rt.handlePrequal)))       // POST start|answer|back|exit
	mux.Handle("/api/evaluation/", middleware.RequireAuth(http.HandlerFunc(rt.handleEvaluation))) // POST start|select|next|back|confirm|exit

	mux.Handle("/api/reports/vendor", middleware.RequireAuth(http.HandlerFunc(rt.handleVendorReport)))    // GET
	mux.Handle("/api/reports/overview", middleware.RequireAuth(http.HandlerFunc(rt.handleOverview)))      // GET
	mux.Handle("/api/reports/new-vendors", middleware.RequireAuth(http.HandlerFunc(rt.handleNewVendors))) // GET
	mux.Handle("/api/reports/export.csv", middleware.RequireAdmin(http.HandlerFunc(rt.handleExportCSV)))  // GET
}

func (rt *Router) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service error codes to HTTP statuses. Anything without a
// service code is a bug or an infrastructure failure: log it, answer 500.
func (rt *Router) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal"
	msg := "internal error"
	if se, ok := services.AsServiceError(err); ok {
		code, msg = string(se.Code), se.Message
		switch se.Code {
		case services.ErrorInvalid:
			status = http.StatusBadRequest
		case services.ErrorUnauthorized:
			status = http.StatusUnauthorized
		case services.ErrorForbidden:
			status = http.StatusForbidden
		case services.ErrorNotFound:
			status = http.StatusNotFound
		case services.ErrorConflict:
			status = http.StatusConflict
		case services.ErrorUnavailable:
			status = http.StatusServiceUnavailable
		}
	} else {
		rt.log.Error("request failed", zap.Error(err))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": msg})
}

// uid extracts the authenticated user ID set by WithAuth.
func (rt *Router) uid(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, ok := middleware.UIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return uid, true
}
