package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"lectern/internal/auth"
	"lectern/internal/config"
	"lectern/internal/handler"
	"lectern/internal/metrics"
	"lectern/internal/middleware"
	"lectern/internal/policy"
	"lectern/internal/repository/postgres"
	"lectern/internal/service"
	"lectern/internal/storage"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"auth_mode", cfg.AuthMode,
		"storage_driver", cfg.StorageDriver,
	)

	// Load bucket access policies (embedded defaults, optional override file)
	registry, err := loadPolicies(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to load bucket policies: %v", err)
	}

	// Create the token verifier per configured auth mode
	verifier, err := newVerifier(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create token verifier: %v", err)
	}
	defer verifier.Close()

	// Role store: optional. Without a database URL every authenticated user
	// is a student, which matches the adapter's degraded-role policy.
	ctx := context.Background()
	var roleStore auth.RoleStore
	if cfg.SupabaseDBURL != "" {
		pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()

		logger.Info("database connected", "max_conns", 25, "min_conns", 5)

		roleStore = postgres.NewProfileRepository(&postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		})
	} else {
		logger.Warn("no database URL configured; all principals default to role student")
	}

	identity := auth.NewProvider(verifier, roleStore, logger)

	// Create the object store per configured driver
	store, err := newObjectStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create object store: %v", err)
	}

	// One exchange service per configured bucket
	var exchanges []*service.Exchange
	for _, name := range registry.Buckets() {
		bucketPolicy, _ := registry.Lookup(name)
		exchanges = append(exchanges, service.NewExchange(bucketPolicy, store, logger))
	}

	// Handlers
	fileHandler := handler.NewFileHandler(exchanges, logger)
	profileHandler := handler.NewProfileHandler(logger)

	logger.Info("services initialized", "buckets", registry.Buckets())

	// Routes
	mux := handler.NewRouter(fileHandler, profileHandler)

	collector := metrics.NewCollector()
	mux.Handle("GET /metrics", collector.Handler())

	// Build middleware chain; applied in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Metrics → Routes
	// Metrics must sit inside Auth: Auth derives a new request when it attaches
	// the principal, and the mux records the matched pattern on that derived
	// request. Auth rejections (401/504) are therefore not counted per-route.
	var h http.Handler = mux
	h = collector.Middleware()(h)
	h = middleware.Auth(identity, logger)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     h,
		ReadTimeout: 30 * time.Second,
		// Uploads proxy to the storage provider; give them a longer bound
		// than the single-digit-second identity/sign calls.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func loadPolicies(cfg *config.Config, logger *slog.Logger) (*policy.Registry, error) {
	if cfg.PolicyFile != "" {
		logger.Info("loading bucket policy override", "path", cfg.PolicyFile)
		return policy.NewRegistryFromFile(cfg.PolicyFile)
	}
	return policy.NewRegistry()
}

func newVerifier(cfg *config.Config, logger *slog.Logger) (auth.TokenVerifier, error) {
	switch cfg.AuthMode {
	case config.AuthModeJWKS:
		return auth.NewJWKSVerifier(cfg.SupabaseJWKSURL, logger)
	default:
		return auth.NewGoTrueVerifier(auth.GoTrueConfig{
			ProjectURL: cfg.SupabaseURL,
			ServiceKey: cfg.SupabaseServiceKey,
		}, logger)
	}
}

func newObjectStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.ObjectStore, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverS3:
		return storage.NewS3Store(ctx, storage.S3Config{
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
			BucketPrefix:    cfg.S3BucketPrefix,
		}, logger)
	default:
		return storage.NewSupabaseStore(storage.SupabaseConfig{
			ProjectURL: cfg.SupabaseURL,
			ServiceKey: cfg.SupabaseServiceKey,
		}, logger)
	}
}
