package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"legalcosts-backend/calculator"
	"legalcosts-backend/config"
	"legalcosts-backend/enhancement"
	"legalcosts-backend/handlers"
	"legalcosts-backend/logging"
	"legalcosts-backend/matching"
	"legalcosts-backend/registry"
	"legalcosts-backend/repository"
	"legalcosts-backend/service"
	"legalcosts-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

func main() {
	// Load .env file from project root (relative to cmd/server/)
	// Try current directory first, then project root
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Development())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	// Initialize database connections
	var db *pgxpool.Pool
	if cfg.Database.URL != "" {
		pool, err := initPostgres(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		db = pool
		logger.Info("Postgres connection established")
	} else {
		logger.Warn("DATABASE_URL not set, enhancement audit and case law lookup disabled")
	}

	// Initialize storage
	bundleStorage, err := storage.NewStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	logger.Info("Storage initialized", zap.String("type", string(cfg.Storage.Type)))

	reg, err := buildRegistry(ctx, cfg, bundleStorage, logger)
	if err != nil {
		return err
	}

	engine, err := matching.NewEngine(matching.DefaultWeights(), matching.WithDefaultThreshold(cfg.Matching.Threshold))
	if err != nil {
		return err
	}

	gateOpts := []enhancement.GateOption{
		enhancement.GateWithTimeout(cfg.Enhancer.Timeout),
		enhancement.GateWithLogger(logger.Named("gate")),
	}
	validator, err := buildValidator(cfg)
	if err != nil {
		return err
	}
	gateOpts = append(gateOpts, enhancement.GateWithValidator(validator))

	switch cfg.Enhancer.Backend {
	case config.EnhancerGemini:
		client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.Enhancer.GeminiAPIKey))
		if err != nil {
			return err
		}
		defer client.Close()
		gateOpts = append(gateOpts, enhancement.GateWithEnhancer(enhancement.NewGeminiEnhancer(client, cfg.Enhancer.GeminiModel)))
		logger.Info("Gemini client initialized", zap.String("model", cfg.Enhancer.GeminiModel))
	case config.EnhancerTemplate:
		gateOpts = append(gateOpts, enhancement.GateWithEnhancer(enhancement.NewTemplateEnhancer()))
	}

	serviceOpts := []service.CostsServiceOption{
		service.WithRegistry(reg),
		service.WithEngine(engine),
		service.WithLogger(logger.Named("costs")),
	}
	var auditHandler *handlers.AuditHandler
	if db != nil {
		auditRepo := repository.NewEnhancementAuditRepository(db)
		auditHandler = handlers.NewAuditHandler(auditRepo)
		gateOpts = append(gateOpts, enhancement.GateWithAuditRecorder(auditRepo))
		serviceOpts = append(serviceOpts, service.WithCaseLawLookup(repository.NewLegalChunkRepository(db)))
	}
	serviceOpts = append(serviceOpts, service.WithGate(enhancement.NewGate(gateOpts...)))

	costsService, err := service.NewCostsService(serviceOpts...)
	if err != nil {
		return err
	}

	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), handlers.RequestID(), handlers.AccessLog(logger.Named("http")))
	handlers.SetupRoutes(r,
		handlers.NewCostsHandler(costsService),
		handlers.NewBundleHandler(bundleStorage),
		auditHandler,
		rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Server.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("Server shutting down")
	return srv.Shutdown(shutdownCtx)
}

// buildRegistry registers the embedded module plus every configured bundle.
func buildRegistry(ctx context.Context, cfg *config.Config, store storage.Storage, logger *zap.Logger) (*registry.Registry, error) {
	reg := registry.NewRegistry()

	defaultBundle, err := calculator.DefaultBundle()
	if err != nil {
		return nil, err
	}
	bundles := []*registry.Bundle{defaultBundle}

	if len(cfg.Matching.ModuleBundles) > 0 {
		loaded, err := service.LoadBundles(ctx, store, cfg.Matching.ModuleBundles)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, loaded...)
	}

	if err := service.RegisterBundles(reg, bundles, logger); err != nil {
		return nil, err
	}
	return reg, nil
}

func buildValidator(cfg *config.Config) (*enhancement.Validator, error) {
	if cfg.Enhancer.TerminologyFile == "" {
		return enhancement.NewValidator(), nil
	}
	termCfg, err := enhancement.LoadTerminologyConfig(cfg.Enhancer.TerminologyFile)
	if err != nil {
		return nil, err
	}
	guard, err := enhancement.NewTerminologyGuard(termCfg)
	if err != nil {
		return nil, err
	}
	return enhancement.NewValidator(enhancement.ValidatorWithTerminologyGuard(guard)), nil
}

func initPostgres(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
