package main

import (
	"encoding/json"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/iscore/vendoreval/internal/api"
	"github.com/iscore/vendoreval/internal/config"
	"github.com/iscore/vendoreval/internal/middleware"
	"github.com/iscore/vendoreval/internal/store"
)

func main() {
	cfg, err := config.ParseEnv()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := newLogger(cfg.Debug)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	st, closeStore, err := openStore(cfg, log)
	if err != nil {
		log.Fatal("open store", zap.Error(err))
	}
	defer closeStore()

	mux := http.NewServeMux()
	api.NewRouter(log, st, cfg).Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "name": "Vendoreval API"})
	})

	handler := middleware.CORS(middleware.SecureHeaders(middleware.NoStore(middleware.WithAuth(mux))))

	log.Info("server listening", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openStore prefers SQLite when a path is configured; without one the server
// runs on the in-memory store and loses state on restart.
func openStore(cfg *config.Config, log *zap.Logger) (store.Store, func(), error) {
	if cfg.SQLitePath == "" {
		log.Warn("no sqlite path configured, using in-memory store")
		return store.NewMemoryStore(), func() {}, nil
	}
	s, err := store.OpenSQLite(cfg.SQLitePath, cfg.MigrationsDir)
	if err != nil {
		return nil, nil, err
	}
	log.Info("sqlite store opened", zap.String("path", cfg.SQLitePath))
	return s, func() { _ = s.Close() }, nil
}
