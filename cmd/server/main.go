package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"shield/internal/audit"
	"shield/internal/behavior"
	"shield/internal/database/boltstore"
	"shield/internal/database/redisstore"
	"shield/internal/database/sqlitestore"
	"shield/internal/executor"
	"shield/internal/handlers"
	"shield/internal/metrics"
	"shield/internal/queue"
	"shield/internal/routing"
	"shield/internal/shield"
	"shield/internal/tracing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"
)

func main() {
	// Configure zerolog
	// Set log level from environment (default: info)
	logLevel := os.Getenv("LOG_LEVEL")
	switch logLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Use pretty console logging in development, JSON in production
	if os.Getenv("LOG_FORMAT") == "json" {
		// Production: JSON logs
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		// Development: pretty console logs
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	log.Info().Msg("Starting Shield moderation service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing (OTLP endpoint from OTEL_EXPORTER_OTLP_ENDPOINT)
	tp, err := tracing.Init(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Tracer shutdown failed")
		}
	}()

	// Get port from env or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8780"
	}

	// Shield policy configuration
	cfg := shield.DefaultConfig()
	if v := os.Getenv("SHIELD_ENABLED"); v != "" {
		cfg.Enabled = v == "true"
	}
	if v := os.Getenv("SHIELD_AUTO_ACTIONS"); v != "" {
		cfg.AutoActions = v == "true"
	}
	if v := os.Getenv("SHIELD_REINCIDENCE_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Fatal().Str("value", v).Msg("SHIELD_REINCIDENCE_THRESHOLD must be a positive integer")
		}
		cfg.ReincidenceThreshold = n
	}

	// Bolt database for behavior and audit records
	dbPath := os.Getenv("SHIELD_DB_PATH")
	if dbPath == "" {
		// Default to XDG data directory or home directory for development
		dataDir := os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to get home directory")
			}
			dataDir = filepath.Join(home, ".local", "share")
		}
		dbPath = filepath.Join(dataDir, "shield", "shield.db")
	}

	store, err := boltstore.Open(boltstore.Options{
		Path: dbPath,
	})
	if err != nil {
		log.Fatal().Err(err).Str("path", dbPath).Msg("Failed to open database")
	}
	defer store.Close()

	log.Info().Str("path", dbPath).Msg("Database opened")

	// Optional redis: shared behavior state and the job queue.
	// Without it, behavior lives in bolt and jobs in the in-process queue.
	var redisClient *goredis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", addr).Msg("Failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Str("addr", addr).Msg("Redis connected")
	}

	var behaviorStore behavior.Store = store.BehaviorStore()
	if redisClient != nil && os.Getenv("SHIELD_BEHAVIOR_BACKEND") == "redis" {
		behaviorStore = redisstore.NewBehaviorStore(redisClient)
		log.Info().Msg("Using redis behavior store")
	}

	var jobQueue queue.Queue
	if redisClient != nil {
		jobQueue = queue.NewRedis(redisClient, "")
	} else {
		jobQueue = queue.NewMemory()
		log.Warn().Msg("REDIS_ADDR not set, using in-process job queue")
	}

	// Audit storage: bolt by default, sqlite when a path is configured
	var auditStore audit.Store = store.AuditStore()
	auditCount := func() int { return store.AuditStore().Count() }
	if sqlitePath := os.Getenv("SHIELD_SQLITE_PATH"); sqlitePath != "" {
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0o755); err != nil {
			log.Fatal().Err(err).Str("path", sqlitePath).Msg("Failed to create sqlite directory")
		}
		db, err := sql.Open("sqlite", sqlitePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", sqlitePath).Msg("Failed to open sqlite database")
		}
		defer db.Close()
		sqliteAudit, err := sqlitestore.NewAuditStore(db)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize sqlite audit store")
		}
		auditStore = sqliteAudit
		auditCount = func() int {
			n, err := sqliteAudit.Count(context.Background())
			if err != nil {
				return -1
			}
			return n
		}
		log.Info().Str("path", sqlitePath).Msg("Using sqlite audit store")
	}

	// Wire the moderation pipeline
	tracker := behavior.NewTracker(behaviorStore)
	recorder := audit.NewRecorder(auditStore)
	exec := executor.New(executor.Config{
		AutoActions:          cfg.AutoActions,
		ReincidenceThreshold: cfg.ReincidenceThreshold,
	}, jobQueue, tracker, recorder)
	service := shield.NewService(cfg, tracker, exec, jobQueue, recorder)

	// Gauge metrics come from the bolt store regardless of backend choice;
	// the bolt counts are cheap and the tracker always writes through it in
	// the default configuration.
	bolt := store.BehaviorStore()
	metrics.StartCollector(ctx, metrics.StatsSource{
		TrackedUserCount:    bolt.Count,
		MutedUserCount:      func() int { return bolt.CountWhere(func(r *behavior.Record) bool { return r.MutedAt(time.Now()) }) },
		BlockedUserCount:    func() int { return bolt.CountWhere(func(r *behavior.Record) bool { return r.IsBlocked }) },
		RecordedActionCount: auditCount,
	}, time.Minute)

	// Initialize handlers with all dependencies via constructor injection
	h := handlers.NewHandler(service, handlers.DefaultConfig())

	// Setup router with middleware
	handler := routing.SetupRouter(routing.Config{
		Handlers: h,
		Logger:   log.Logger,
		APIKey:   os.Getenv("SHIELD_API_KEY"),
	})

	srv := &http.Server{
		Addr:              "0.0.0.0:" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().
		Str("address", srv.Addr).
		Bool("shield_enabled", cfg.Enabled).
		Bool("auto_actions", cfg.AutoActions).
		Str("database", dbPath).
		Msg("Starting HTTP server")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
	log.Info().Msg("Server stopped")
}
