package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"studentportal/internal/api"
	"studentportal/internal/auth"
	"studentportal/internal/config"
	"studentportal/internal/database"
	"studentportal/internal/diag"
	"studentportal/internal/handlers"
	"studentportal/internal/repository"
	"studentportal/internal/security"
	"studentportal/internal/templates"
	"studentportal/internal/tokenstore"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	reporter := diag.NewReporter(log.Default(), cfg.RollbarToken, cfg.Env, version)
	defer reporter.Close()
	if reporter.Enabled() {
		log.Println("Error reporting enabled")
	}

	sealer, err := security.NewSealer(cfg.SessionSecret)
	if err != nil {
		log.Fatalf("Failed to initialize token sealer: %v", err)
	}

	// Token store
	store, closeStore, err := openTokenStore(cfg, sealer)
	if err != nil {
		log.Fatalf("Failed to initialize token store: %v", err)
	}
	defer closeStore()

	log.Printf("Token store ready (type: %s)", cfg.TokenStore)

	accessor := tokenstore.NewAccessor(store)
	client := api.New(cfg.APIBaseURL, accessor, api.WithTimeout(cfg.APITimeout))

	// Load templates
	tmpl, err := templates.Load()
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	log.Println("Templates loaded successfully")

	managerOpts := []auth.ManagerOption{
		auth.WithGrace(cfg.VerifyGrace),
		auth.WithLoadingPage(handlers.LoadingPage(tmpl)),
	}
	if sweeper, ok := store.(tokenstore.Sweeper); ok {
		managerOpts = append(managerOpts, auth.WithSweeper(sweeper, time.Hour))
	}
	manager := auth.NewManager(client, managerOpts...)
	if err := manager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize auth manager: %v", err)
	}
	defer manager.Dispose()

	var googleConfig *oauth2.Config
	if cfg.GoogleEnabled() {
		googleConfig = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		}
	} else {
		log.Println("Google sign-in disabled: GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET not set")
	}

	limiter := security.NewRateLimiter(10, time.Minute)
	defer limiter.Stop()

	// Initialize handlers
	middleware := handlers.NewMiddleware(security.NewCSRFGenerator(cfg.SessionSecret), limiter, cfg.SessionDuration, cfg.UploadMaxSize)
	authHandler := handlers.NewAuthHandler(client, accessor, googleConfig, cfg.OAuthRedirectBaseURL, tmpl, middleware, reporter)
	passwordHandler := handlers.NewPasswordHandler(client, tmpl, middleware, reporter)
	accountHandler := handlers.NewAccountHandler(client, accessor, tmpl, middleware, reporter)
	ticketHandler := handlers.NewTicketHandler(client, cfg.UploadMaxSize, tmpl, middleware, reporter)
	portalHandler := handlers.NewPortalHandler(client, accessor, tmpl, middleware, reporter)

	requireAuth := func(h http.HandlerFunc) http.Handler {
		return manager.Require(auth.RequireAuth, h)
	}
	requireStudent := func(h http.HandlerFunc) http.Handler {
		return manager.Require(auth.RequireStudentAuth, h)
	}

	// Setup routes
	mux := http.NewServeMux()

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(templates.Static())))

	// Public routes
	mux.HandleFunc("GET /{$}", authHandler.ShowLogin)
	mux.HandleFunc("GET /login", authHandler.ShowLogin)
	mux.HandleFunc("POST /login", middleware.RateLimit("login", middleware.CSRFProtect(authHandler.Login)))
	mux.HandleFunc("POST /logout", middleware.CSRFProtect(authHandler.Logout))
	mux.HandleFunc("GET /auth/google/start", authHandler.StartGoogle)
	mux.HandleFunc("GET /auth/google/callback", authHandler.GoogleCallback)

	// Password reset
	mux.HandleFunc("GET /forgetpassword", passwordHandler.ShowForgotPassword)
	mux.HandleFunc("POST /forgetpassword", middleware.RateLimit("reset", middleware.CSRFProtect(passwordHandler.ForgotPassword)))

	// Support tickets
	mux.HandleFunc("GET /support", ticketHandler.ShowSupport)
	mux.HandleFunc("POST /support", middleware.RateLimit("ticket", middleware.CSRFProtect(ticketHandler.SubmitTicket)))

	// Account routes
	mux.Handle("GET /changepassword", requireAuth(accountHandler.ShowAccount))
	mux.Handle("POST /changepassword", requireAuth(middleware.RateLimit("change-password", middleware.CSRFProtect(accountHandler.ChangePassword))))

	// Student portal routes
	mux.Handle("GET /student-portal", requireStudent(portalHandler.Dashboard))
	mux.Handle("GET /student-portal/bills/{id}", requireStudent(portalHandler.BillDetails))
	mux.Handle("GET /student-portal/bills/{id}/download", requireStudent(portalHandler.DownloadBill))
	mux.Handle("POST /student-portal/bills/{id}/payment", requireStudent(middleware.CSRFProtect(portalHandler.MakePayment)))
	mux.Handle("POST /student-portal/bills/{id}/charges", requireStudent(middleware.CSRFProtect(portalHandler.AddCharge)))
	mux.Handle("POST /student-portal/bills/{id}/charges/{chargeId}", requireStudent(middleware.CSRFProtect(portalHandler.UpdateCharge)))
	mux.Handle("POST /student-portal/bills/{id}/charges/{chargeId}/delete", requireStudent(middleware.CSRFProtect(portalHandler.DeleteCharge)))
	mux.Handle("GET /student-portal/results", requireStudent(portalHandler.Results))
	mux.Handle("GET /student-portal/booklist", requireStudent(portalHandler.Booklist))

	// Wrap with session and logging middleware
	handler := handlers.Logging(middleware.Session(mux))

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s (backend: %s)", addr, cfg.APIBaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}

// openTokenStore builds the configured token store and returns a function
// that releases its resources.
func openTokenStore(cfg *config.Config, sealer *security.Sealer) (tokenstore.Store, func(), error) {
	switch strings.ToLower(cfg.TokenStore) {
	case "redis":
		store, err := tokenstore.NewRedisStore(context.Background(), cfg.RedisURL, sealer, cfg.SessionDuration)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Printf("Error closing redis: %v", err)
			}
		}, nil

	case "memory":
		log.Println("Warning: tokens are kept in memory and lost on restart")
		return tokenstore.NewMemoryStore(cfg.SessionDuration), func() {}, nil

	default:
		// Initialize database with config (supports sqlite, postgres, mysql)
		db, err := database.InitializeWithConfig(cfg)
		if err != nil {
			return nil, nil, err
		}

		log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

		if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
			db.Close()
			return nil, nil, err
		}

		log.Println("Migrations completed successfully")

		repo := repository.NewTokenSessionRepository(db)
		return tokenstore.NewSQLStore(repo, sealer, cfg.SessionDuration), func() {
			if err := db.Close(); err != nil {
				log.Printf("Error closing database: %v", err)
			}
		}, nil
	}
}
