package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"

	"github.com/truecost/backend/internal/config"
	"github.com/truecost/backend/internal/database"
	mW "github.com/truecost/backend/internal/middleware"
	"github.com/truecost/backend/internal/services"
)

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

	viper.BindEnv("data.dir", "DATA_DIR")
	viper.BindEnv("database.path", "DATABASE_PATH")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.access_ttl_minutes", "JWT_ACCESS_TTL_MINUTES")
	viper.BindEnv("jwt.refresh_ttl_days", "JWT_REFRESH_TTL_DAYS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")
	viper.BindEnv("bootstrap.email", "BOOTSTRAP_EMAIL")
	viper.BindEnv("bootstrap.password", "BOOTSTRAP_PASSWORD")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}
	config.Init()

	// Initialize storage
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Initialize services
	accountService := services.NewAccountService(db)
	journalService := services.NewJournalService(db, accountService)
	amortizationService := services.NewAmortizationService(db, accountService, journalService)
	reconciliationService := services.NewReconciliationService(db, accountService, journalService)
	reportService := services.NewReportService(db)
	kpiService := services.NewKpiService(db, reportService)
	catalogService := services.NewCatalogService(db)
	systemService := services.NewSystemService()
	authService := services.NewAuthService(db, redisClient)

	if err := authService.EnsureBootstrapUser(); err != nil {
		log.Fatalf("Failed to seed bootstrap user: %v", err)
	}

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/refresh", authService.Refresh)
		r.Post("/auth/logout", authService.Logout)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/auth/me", authService.Me)
			r.Get("/system/init", systemService.InitState)

			r.Get("/accounts", accountService.ListAccounts)
			r.Post("/accounts", accountService.CreateAccount)

			r.Get("/transactions", journalService.ListTransactions)
			r.Post("/transactions", journalService.CreateTransaction)

			r.Post("/asset-purchases", amortizationService.CreateAssetPurchaseHandler)
			r.Post("/reconciliations", reconciliationService.ReconcileAccount)

			r.Get("/reports/cash-flow", reportService.GetCashFlowReport)
			r.Get("/reports/utility", reportService.GetUtilityReport)
			r.Get("/kpis/adjustments", kpiService.ListAdjustmentKpi)

			r.Get("/categories", catalogService.ListCategoriesHandler)
			r.Post("/categories", catalogService.CreateCategoryHandler)
			r.Get("/payees", catalogService.ListPayeesHandler)
			r.Post("/payees", catalogService.CreatePayeeHandler)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
