package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecurie-aix/rover-panel/auth"
	"github.com/ecurie-aix/rover-panel/internal/access"
	"github.com/ecurie-aix/rover-panel/internal/audit"
	"github.com/ecurie-aix/rover-panel/internal/config"
	"github.com/ecurie-aix/rover-panel/internal/db"
	"github.com/ecurie-aix/rover-panel/internal/handlers"
	"github.com/ecurie-aix/rover-panel/internal/identity"
	"github.com/ecurie-aix/rover-panel/internal/models"
	"github.com/ecurie-aix/rover-panel/internal/policy"
	"github.com/ecurie-aix/rover-panel/internal/store"
	"github.com/ecurie-aix/rover-panel/internal/telemetry"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()

	dbConn, err := connectDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *migrateOnlyFlag {
		if err := db.Migrate(dbConn); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")
		return
	}
	if *seedOnlyFlag {
		if err := db.Seed(dbConn, cfg.Admin); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		log.Println("Seeding completed successfully")
		return
	}

	if cfg.App.Migrations {
		if err := db.Migrate(dbConn); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed")
	}
	if err := db.Seed(dbConn, cfg.Admin); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	// Sessions outlive accounts; reject cookies whose user is gone.
	auth.SetUserVerifier(func(ctx context.Context, uid uint) bool {
		var count int64
		dbConn.WithContext(ctx).Model(&models.User{}).
			Where("id = ? AND active = ?", uid, true).Count(&count)
		return count > 0
	})

	appHandler := NewApp(buildHandlers(dbConn, cfg))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      withLogging(appHandler),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s (dev=%v)", cfg.Server.Port, cfg.App.Dev)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Server stopped gracefully")
}

// buildHandlers wires the store, services and handlers together.
func buildHandlers(dbConn *gorm.DB, cfg config.Config) Handlers {
	st := store.New(dbConn)
	ident := identity.NewService(st)
	workflow := access.NewWorkflow(st)
	auditLog := audit.NewLog(st)
	cache := telemetry.NewCache()
	gate := policy.NewGate(ident)

	return Handlers{
		Auth:      handlers.NewAuthHandler(ident, auditLog),
		User:      handlers.NewUserHandler(ident, workflow),
		Admin:     handlers.NewAdminHandler(ident, workflow),
		Dashboard: handlers.NewDashboardHandler(cache, auditLog, ident, cfg.Robot),
		History:   handlers.NewHistoryHandler(st, auditLog),
		Gate:      gate,
	}
}

// connectDB establishes a connection to the PostgreSQL database using config.
func connectDB(dbCfg config.DatabaseConfig) (*gorm.DB, error) {
	log.Printf("Connecting to database: host=%s port=%d dbname=%s user=%s",
		dbCfg.Host, dbCfg.Port, dbCfg.DBName, dbCfg.User)
	return gorm.Open(postgres.Open(dbCfg.DSN()), &gorm.Config{})
}

// withLogging adds request logging middleware.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
