package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/SymptomAI/symptom-ai/internal/analysis"
	"github.com/SymptomAI/symptom-ai/internal/config"
	"github.com/SymptomAI/symptom-ai/internal/history"
	"github.com/SymptomAI/symptom-ai/internal/kvstore"
	"github.com/SymptomAI/symptom-ai/internal/platform/openai"
	"github.com/SymptomAI/symptom-ai/internal/profile"
	"github.com/SymptomAI/symptom-ai/internal/report"
	"github.com/SymptomAI/symptom-ai/internal/session"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("load config: %v", err))
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("build logger: %v", err))
	}
	defer logger.Sync()

	// 1. Durable storage
	durable := openDurableStore(cfg, logger)

	// 2. Clients
	aiClient := openai.NewClient(cfg.OpenAI.BaseURL, cfg.OpenAI.Timeout)

	// 3. Services
	ledger := history.NewLedger(durable, logger.Named("history"))
	sessions := session.NewManager(cfg.Session.TTL, logger.Named("session"))
	sessions.StartSweeper(context.Background(), cfg.Session.SweepInterval)
	gateway := analysis.NewGateway(aiClient, cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger.Named("analysis"))
	reportSvc := report.NewService()

	analysisHandler := analysis.NewHandler(gateway, ledger, sessions, logger.Named("analysis"))
	historyHandler := history.NewHandler(ledger, sessions)
	sessionHandler := session.NewHandler(sessions)
	profileHandler := profile.NewHandler(durable)
	reportHandler := report.NewHandler(reportSvc, ledger, logger.Named("report"))

	// 4. Router
	r := chi.NewRouter()
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	// CORS for frontend
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
			if r.Method == "OPTIONS" {
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api", func(r chi.Router) {
		analysis.RegisterRoutes(r, analysisHandler)
		history.RegisterRoutes(r, historyHandler)
		session.RegisterRoutes(r, sessionHandler)
		profile.RegisterRoutes(r, profileHandler)
		report.RegisterRoutes(r, reportHandler)
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("server starting", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// openDurableStore picks the durable scope backend: postgres when a DSN is
// configured, the local sqlite file otherwise, and an in-memory store when
// neither can be opened so the service still comes up (history just will not
// survive a restart).
func openDurableStore(cfg *config.Config, logger *zap.Logger) kvstore.Store {
	if cfg.Database.URL != "" {
		var db *sql.DB
		var err error
		for i := 0; i < 10; i++ {
			db, err = sql.Open("postgres", cfg.Database.URL)
			if err == nil {
				err = db.Ping()
			}
			if err == nil {
				break
			}
			logger.Info("waiting for database", zap.Int("attempt", i+1), zap.Error(err))
			time.Sleep(2 * time.Second)
		}
		if err != nil {
			logger.Warn("could not connect to postgres, falling back to memory store", zap.Error(err))
			return kvstore.NewMemory()
		}

		m, err := migrate.New("file://"+cfg.Database.Migrations, cfg.Database.URL)
		if err != nil {
			logger.Warn("migration init failed", zap.Error(err))
		} else if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			logger.Warn("migration up failed", zap.Error(err))
		} else {
			logger.Info("migrations applied")
		}
		logger.Info("using postgres durable store")
		return kvstore.NewPostgres(db, logger.Named("kvstore"))
	}

	store, err := kvstore.NewSQLite(cfg.Database.SQLitePath, logger.Named("kvstore"))
	if err != nil {
		logger.Warn("could not open sqlite, falling back to memory store", zap.Error(err))
		return kvstore.NewMemory()
	}
	logger.Info("using sqlite durable store", zap.String("path", cfg.Database.SQLitePath))
	return store
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)))
		})
	}
}
