package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/noaesperanza/imre/internal/auth"
	"github.com/noaesperanza/imre/internal/config"
	"github.com/noaesperanza/imre/internal/domain/activity"
	"github.com/noaesperanza/imre/internal/domain/catalog"
	"github.com/noaesperanza/imre/internal/domain/interview"
	"github.com/noaesperanza/imre/internal/domain/report"
	"github.com/noaesperanza/imre/internal/domain/sharing"
	"github.com/noaesperanza/imre/internal/evaluation"
	"github.com/noaesperanza/imre/internal/mcp"
	"github.com/noaesperanza/imre/internal/sqlite"
	"github.com/noaesperanza/imre/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if len(os.Args) > 1 {
		if err := runAdmin(cfg, os.Args[1], os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
			os.Exit(1)
		}
		return
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == config.TransportStdio {
		logWriter = os.Stderr
	}
	if cfg.Log.Path != "" {
		fileWriter, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer fileWriter.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	cat, err := loadCatalog(cfg.Interview.CatalogPath)
	if err != nil {
		logger.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}

	db, err := openDB(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	sessionRepo := sqlite.NewSessionRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)
	grantRepo := sqlite.NewGrantRepository(db)
	reportRepo, err := report.NewCachedRepository(sqlite.NewReportRepository(db), cfg.Report.CacheSize)
	if err != nil {
		logger.Error("failed to create report cache", "error", err)
		os.Exit(1)
	}

	engine := interview.NewEngine(cat, nil)
	interviewSvc := interview.NewService(sessionRepo, activityRepo, engine, cfg.Interview.MaxWriteRetries, logger)
	reportSvc := report.NewService(reportRepo, activityRepo, report.NewSynthesizer(cat), logger)
	sharingSvc := sharing.NewService(grantRepo, reportRepo, activityRepo, logger)
	activitySvc := activity.NewService(activityRepo, logger)
	evalSvc := evaluation.NewService(interviewSvc, reportSvc, sharingSvc, activitySvc, logger)

	handler := mcp.NewHandler(evalSvc)
	resolver := newResolver(cfg, db)
	mcpServer := mcp.NewServer(mcp.Config{
		Handler:       handler,
		Resolver:      resolver,
		AuthEnabled:   cfg.Auth.Enabled,
		TransportMode: cfg.Transport.Mode,
		Logger:        logger,
	})

	logger.Info("catalog loaded", "stages", cat.TotalStages())

	if cfg.Transport.Mode == config.TransportStdio {
		runStdioMode(logger, mcpServer)
		return
	}

	opts := transport.Options{
		MCP:        newStreamableHandler(mcpServer),
		MapError:   mapRPCError,
		TrustProxy: cfg.Server.TrustProxy,
	}
	if cfg.Auth.Enabled {
		opts.Auth = transport.AuthMiddleware(resolver)
	}
	if cfg.RateLimit.Enabled {
		limiter, err := transport.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		if err != nil {
			logger.Error("failed to create rate limiter", "error", err)
			os.Exit(1)
		}
		opts.RateLimit = limiter.Middleware
	}
	runHTTPMode(logger, transport.NewServer(handler, opts), cfg.Server.Host, cfg.Server.Port, cfg.Auth.Enabled)
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(path)
}

func openDB(path string) (*sqlite.DB, error) {
	if err := ensureDir(path); err != nil {
		return nil, fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// newResolver accepts API keys and, when a secret is configured, JWTs.
func newResolver(cfg config.Config, db *sqlite.DB) auth.Resolver {
	chain := auth.Chain{auth.NewAPIKeyResolver(sqlite.NewAPIKeyRepository(db))}
	if cfg.Auth.JWTSecret != "" {
		chain = append(chain, auth.NewJWTResolver(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer))
	}
	return chain
}

func mapRPCError(err error) any {
	if apiErr := mcp.MapError(err); apiErr != nil {
		return apiErr
	}
	return nil
}

func newStreamableHandler(mcpServer *sdkmcp.Server) http.Handler {
	return sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)
}

func runStdioMode(logger *slog.Logger, mcpServer *sdkmcp.Server) {
	logger.Info("starting stdio transport", "auth", "disabled")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stdio server error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}

func runHTTPMode(logger *slog.Logger, router http.Handler, host string, port int, authEnabled bool) {
	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr, "auth", authEnabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func ensureDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
