package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"lexvault.org/internal/audit"
	"lexvault.org/internal/auth"
	"lexvault.org/internal/config"
	"lexvault.org/internal/console"
	"lexvault.org/internal/httpapi"
	"lexvault.org/internal/obs"
	"lexvault.org/internal/qr"
	"lexvault.org/internal/registry"
	"lexvault.org/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.PGDSN == "" {
		log.Fatal("LEXVAULT_PG_DSN is required")
	}

	store, err := pg.Open(cfg.PGDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	auditor := audit.NewWriter(store)

	svc, err := registry.NewService(store, auditor,
		registry.WithInviteTTL(cfg.InviteTTL),
		registry.WithBootstrapAdminEmail(cfg.BootstrapAdminEmail),
	)
	if err != nil {
		log.Fatalf("registry: %v", err)
	}

	sessions, err := auth.NewSessions([]byte(cfg.SessionSecret))
	if err != nil {
		log.Fatalf("sessions: %v", err)
	}
	apiTokens, err := auth.NewAPITokens([]byte(cfg.APITokenSecret))
	if err != nil {
		log.Fatalf("api tokens: %v", err)
	}
	signer, err := qr.NewSigner([]byte(cfg.QRSecret), cfg.QRTTL)
	if err != nil {
		log.Fatalf("qr signer: %v", err)
	}

	runner := console.New(svc, store, auditor, console.NewActorLimiter(rate.Limit(1), 5))

	api := httpapi.New(httpapi.Config{
		Sessions:       sessions,
		APITokens:      apiTokens,
		Registry:       svc,
		QR:             signer,
		Console:        runner,
		ConsoleEnabled: cfg.AdminConsoleEnabled,
		Ready:          httpapi.ReadyProbe{DB: store.DB()},
		Version:        version,
		BaseURL:        cfg.BaseURL,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting lexvault-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
