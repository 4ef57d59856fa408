package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/voxscribe/voxscribe-api/internal/auth"
	"github.com/voxscribe/voxscribe-api/internal/billing"
	"github.com/voxscribe/voxscribe-api/internal/config"
	"github.com/voxscribe/voxscribe-api/internal/database"
	"github.com/voxscribe/voxscribe-api/internal/handlers"
	"github.com/voxscribe/voxscribe-api/internal/intake"
	"github.com/voxscribe/voxscribe-api/internal/logger"
	"github.com/voxscribe/voxscribe-api/internal/mailer"
	"github.com/voxscribe/voxscribe-api/internal/middleware"
	"github.com/voxscribe/voxscribe-api/internal/queue"
	"github.com/voxscribe/voxscribe-api/internal/services/googleauth"
	"github.com/voxscribe/voxscribe-api/internal/services/speech"
	"github.com/voxscribe/voxscribe-api/internal/session"
	"github.com/voxscribe/voxscribe-api/internal/telemetry"
)

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug mode for speech API logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override debug mode if flag is set
	debugMode := cfg.ServerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			// Ignore sync errors in production
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("speech_model", cfg.SpeechModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	var tracerProvider interface{ Shutdown(context.Context) error }
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "voxscribe-api", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerProvider = tp
				zapLogger.Info("otel_tracer_initialized",
					zap.String("endpoint", cfg.OTELEndpoint),
				)
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Connect to database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	// Connect to Redis for sessions and rate limiting
	sessions, err := session.NewStore(cfg.RedisURL, session.DefaultTTL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := sessions.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// Connect to RabbitMQ for the mail job queue. Retry with exponential
	// backoff to handle broker startup delays; the server runs without it
	// and falls back to synchronous delivery.
	var jobQueue queue.JobQueue
	if cfg.RabbitMQURL != "" {
		jobQueue = connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
		if jobQueue != nil {
			defer func() {
				if err := jobQueue.Close(); err != nil {
					zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
				}
			}()
		}
	} else {
		zapLogger.Info("rabbitmq_not_configured_mail_delivery_is_synchronous")
	}

	// Initialize repositories
	userRepo := database.NewUserRepository(db)
	transcriptRepo := database.NewTranscriptRepository(db)
	corsConfigRepo := database.NewCorsConfigRepository(db)
	ratelimitConfigRepo := database.NewRatelimitConfigRepository(db)

	// Mail transport: queue-backed when RabbitMQ is up, synchronous SMTP
	// otherwise, absent entirely when SMTP is not configured.
	notifier, mailReady := buildNotifier(cfg, jobQueue, zapLogger)

	// Initialize services
	authService := auth.NewService(userRepo, notifier, zapLogger)
	recognizer := speech.NewOpenAIRecognizerWithLogger(
		cfg.OpenAIKey,
		cfg.SpeechBaseURL,
		cfg.SpeechModel,
		cfg.SpeechTimeout,
		zapLogger,
		debugMode,
	)
	stager, err := intake.NewStager(cfg.UploadDir)
	if err != nil {
		zapLogger.Fatal("failed_to_create_upload_dir", zap.Error(err))
	}
	calculator := billing.NewCalculator(cfg.BillingUSDPerMinute, cfg.BillingINRPerUSD, cfg.BillingMarkup)

	var googleClient *googleauth.Client
	var googleVerifier *googleauth.Verifier
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		googleClient = googleauth.NewClient(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.BaseURL+"/auth/google/callback")
		googleVerifier = googleauth.NewVerifier(googleauth.NewJWKSManager(), cfg.GoogleClientID)
		zapLogger.Info("google_sign_in_enabled")
	} else {
		zapLogger.Warn("google_sign_in_not_configured")
	}

	// Initialize handlers
	cookiePolicy := session.NewCookiePolicy(cfg.IsProduction())
	otpEcho := !mailReady && !cfg.IsProduction()
	authHandler := handlers.NewAuthHandler(
		authService, userRepo, sessions, cookiePolicy,
		googleClient, googleVerifier,
		cfg.FrontendURL, otpEcho, zapLogger,
	)
	profileHandler := handlers.NewProfileHandler(userRepo, transcriptRepo, zapLogger)
	transcriptionHandler := handlers.NewTranscriptionHandler(transcriptRepo, stager, recognizer, calculator, zapLogger)
	healthChecker := handlers.NewHealthChecker(db, sessions, jobQueue)

	// Setup router
	r := mux.NewRouter()

	// Note: In gorilla/mux, middleware executes in registration order per
	// router, outermost first.
	zapLogger.Info("setting_up_middleware")

	if cfg.OTELEnabled && tracerProvider != nil {
		r.Use(otelmux.Middleware("voxscribe-api"))
		zapLogger.Info("otel_middleware_enabled")
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))

	// CORS (load from DB, hot-reload; fallback to FRONTEND_URL)
	corsReloader := middleware.NewCORSReloader(corsConfigRepo, cfg.FrontendURL, zapLogger, 1*time.Minute)
	r.Use(corsReloader.Middleware())

	// Rate limit middleware (applied selectively to auth routes, not globally)
	rateLimitReloader := middleware.NewRateLimitReloader(sessions.Client(), ratelimitConfigRepo, "5-S", zapLogger, 1*time.Minute)
	if rateLimitReloader == nil {
		zapLogger.Fatal("failed_to_create_rate_limit_reloader")
	}
	rateLimitMW := rateLimitReloader.Middleware()

	r.Use(middleware.ContentType)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	authMW := middleware.Auth(sessions, userRepo, cookiePolicy)

	// Public routes
	r.HandleFunc("/health", healthChecker.Liveness).Methods("GET")
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")

	// Auth routes: public endpoints are rate limited per IP; JSON bodies
	// stay small.
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.Use(rateLimitMW)
	authRouter.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	authHandler.RegisterRoutes(authRouter)

	// Protected account routes
	accountRouter := authRouter.PathPrefix("").Subrouter()
	accountRouter.Use(authMW)
	accountRouter.Use(middleware.ActivityTracking(userRepo))
	profileHandler.RegisterRoutes(accountRouter)

	// Transcription routes (protected). The body cap covers the multipart
	// audio upload, not just JSON.
	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(middleware.MaxRequestSize(cfg.MaxUploadBytes))
	apiRouter.Use(authMW)
	apiRouter.Use(middleware.ActivityTracking(userRepo))
	transcriptionHandler.RegisterRoutes(apiRouter)

	// Catch-all OPTIONS handler so preflight requests succeed on every
	// route; the CORS middleware has already set the headers.
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Setup server
	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    5 * time.Minute, // large uploads on slow links
		WriteTimeout:   10 * time.Minute,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// CORS and rate limit hot-reload loops
	reloadCtx, reloadCancel := context.WithCancel(context.Background())
	defer reloadCancel()
	go corsReloader.Start(reloadCtx)
	go rateLimitReloader.Start(reloadCtx)

	// DLQ garbage collector: expired OTP mail is worthless, sweep hourly
	if dlqPurger, ok := jobQueue.(queue.DLQPurger); ok {
		dlqGC := queue.NewGarbageCollector(dlqPurger, 1*time.Hour, 24*time.Hour)
		go func() {
			if err := dlqGC.Start(reloadCtx); err != nil && err != context.Canceled {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("started_dlq_garbage_collector",
			zap.Duration("interval", 1*time.Hour),
			zap.Duration("retention", 24*time.Hour),
		)
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("server_starting",
			zap.String("port", cfg.ServerPort),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	reloadCancel()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectRabbitMQ dials the broker with exponential backoff. Returns nil
// when the broker stays unreachable; mail delivery then degrades to the
// synchronous path instead of taking the API down.
func connectRabbitMQ(amqpURL string, zapLogger *zap.Logger) queue.JobQueue {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	for attempt := 0; attempt < maxRetries; attempt++ {
		jobQueue, err := queue.NewRabbitMQQueue(amqpURL)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return jobQueue
		}

		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	zapLogger.Error("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", maxRetries),
	)
	return nil
}

// buildNotifier picks the account email transport: queued when the broker
// is up, direct SMTP when only mail is configured, none otherwise. The
// second return reports whether any delivery path exists.
func buildNotifier(cfg *config.Config, jobQueue queue.JobQueue, zapLogger *zap.Logger) (auth.Notifier, bool) {
	if !cfg.MailConfigured() {
		zapLogger.Warn("smtp_not_configured_account_emails_disabled")
		return nil, false
	}

	if jobQueue != nil {
		zapLogger.Info("account_emails_queued_for_worker_delivery")
		return queue.NewEmailNotifier(jobQueue), true
	}

	smtpMailer, err := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.MailFrom,
		HomeURL:  cfg.FrontendURL,
	}, zapLogger)
	if err != nil {
		zapLogger.Warn("failed_to_initialize_smtp_mailer", zap.Error(err))
		return nil, false
	}
	zapLogger.Info("account_emails_sent_synchronously_over_smtp")
	return smtpMailer, true
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprintf(w, `{"version":"1.0.0","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = err
	}
}
