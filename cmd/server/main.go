package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vaultledger/server/config"
	"github.com/vaultledger/server/internal/auth"
	"github.com/vaultledger/server/internal/automation"
	"github.com/vaultledger/server/internal/ledger"
	"github.com/vaultledger/server/internal/notifier"
	"github.com/vaultledger/server/internal/projection"
	"github.com/vaultledger/server/internal/registry"
	"github.com/vaultledger/server/internal/render"
	"github.com/vaultledger/server/internal/store"
	"github.com/vaultledger/server/internal/store/memstore"
	"github.com/vaultledger/server/internal/token"
	"github.com/vaultledger/server/internal/web/handlers"
	"github.com/vaultledger/server/pkg/identity"
	"github.com/vaultledger/server/pkg/models"
)

// stores groups the four collection stores regardless of driver.
type stores struct {
	clients  store.ClientStore
	invoices store.InvoiceStore
	users    store.UserStore
	settings store.SettingsStore
	close    func(context.Context) error
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := config.Load()

	if cfg.JWT.SigningKey == "" {
		log.Fatal("JWT_SIGNING_KEY is required")
	}

	ctx := context.Background()
	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.close(shutdownCtx); err != nil {
			log.Printf("Store close error: %v", err)
		}
	}()

	var queue notifier.Notifier = notifier.Log{}
	if len(cfg.Kafka.Brokers) > 0 {
		kq := notifier.NewKafka(cfg.Kafka.Brokers)
		defer kq.Close()
		queue = kq
	} else {
		log.Println("KAFKA_BROKERS not set, email notifications run in log mode")
	}

	proj := projection.New(st.users)
	auto := automation.New(st.clients, st.invoices, proj, nil)
	led := ledger.New(ledger.Options{
		Invoices:   st.invoices,
		Settings:   st.settings,
		Projection: proj,
		Automation: auto,
		Renderer:   render.NewPDF(),
		Queue:      queue,
		PayLinkURL: cfg.App.FallbackPayLink,
	})
	reg := registry.New(registry.Options{
		Clients:  st.clients,
		Users:    st.users,
		Invoices: st.invoices,
		Settings: st.settings,
		Ledger:   led,
		Queue:    queue,
	})
	authSvc := auth.NewService(st.users, st.clients)
	tokens := token.NewService(cfg.JWT.SigningKey)

	if err := seedAdminUser(ctx, st.users, cfg.Admin); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	h := handlers.New(reg, led, authSvc, tokens, proj, st.invoices, st.settings)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      h.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on :%s (%s)", cfg.Server.Port, cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.Store.Driver == "memory" {
		log.Println("Using in-memory store, data will not survive a restart")
		mem := memstore.New()
		return &stores{
			clients:  mem.Clients(),
			invoices: mem.Invoices(),
			users:    mem.Users(),
			settings: mem.Settings(),
			close:    func(context.Context) error { return nil },
		}, nil
	}

	db, err := store.Connect(ctx, cfg.Store.URI, cfg.Store.Database, time.Duration(cfg.Store.TimeoutMS)*time.Millisecond)
	if err != nil {
		return nil, err
	}
	return &stores{
		clients:  db.Clients(),
		invoices: db.Invoices(),
		users:    db.Users(),
		settings: db.Settings(),
		close:    db.Close,
	}, nil
}

// seedAdminUser ensures the configured admin account exists. An existing
// account is left untouched.
func seedAdminUser(ctx context.Context, users store.UserStore, cfg config.AdminConfig) error {
	if cfg.Email == "" || cfg.Password == "" {
		log.Println("ADMIN_EMAIL/ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}
	email := identity.NormalizeEmail(cfg.Email)

	existing, err := users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := auth.HashPassword(cfg.Password)
	if err != nil {
		return err
	}
	_, err = users.Insert(ctx, &models.User{
		Name:      cfg.Name,
		Email:     email,
		Password:  hash,
		Role:      models.RoleAdmin,
		CreatedAt: time.Now(),
	})
	if err == nil {
		log.Printf("Seeded admin user %s", email)
	}
	return err
}
