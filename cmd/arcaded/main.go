// Command arcaded serves the casual-game arcade: deterministic game
// simulation, the session ledger, replay verification, and the
// leaderboard, all over one HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chainarcade/replay-go/internal/api"
	"github.com/chainarcade/replay-go/internal/leaderboard"
	"github.com/chainarcade/replay-go/internal/ledger"
	"github.com/chainarcade/replay-go/internal/ownerauth"
)

func main() {
	var (
		addr     = flag.String("addr", "127.0.0.1:8091", "listen address")
		dataDir  = flag.String("data", defaultDataDir(), "directory for databases and secrets")
		owner    = flag.String("owner", "", "owner account for admin operations (required)")
		startFee = flag.String("start-fee", "0.5", "fee required to start a session")
		service  = flag.String("keyring-service", "arcaded", "keyring service name for the admin token")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[ARCADED] ", log.LstdFlags|log.Lshortfile)

	if *owner == "" {
		logger.Fatal("-owner is required")
	}
	fee, err := decimal.NewFromString(*startFee)
	if err != nil || fee.IsNegative() {
		logger.Fatalf("invalid -start-fee %q", *startFee)
	}

	if err := os.MkdirAll(*dataDir, 0o700); err != nil {
		logger.Fatalf("create data dir: %v", err)
	}

	led, err := ledger.Open(filepath.Join(*dataDir, "ledger.db"), ledger.Config{
		Owner:    *owner,
		StartFee: fee,
	}, func(ev ledger.Event) {
		logger.Printf("event %s %v", ev.Type, ev.Attributes)
	})
	if err != nil {
		logger.Fatalf("open ledger: %v", err)
	}
	defer led.Close()

	scores, err := leaderboard.New(filepath.Join(*dataDir, "scores.db"))
	if err != nil {
		logger.Fatalf("open leaderboard: %v", err)
	}
	defer scores.Close()

	tokens := ownerauth.NewTokenStore(*service, filepath.Join(*dataDir, "secrets.json"))
	token, err := tokens.EnsureToken(*owner)
	if err != nil {
		logger.Fatalf("admin token: %v", err)
	}
	// Shown once at startup; admin calls send it as X-Admin-Token.
	logger.Printf("admin token for %s: %s", *owner, token)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      api.NewServer(led, scores, tokens, *owner).Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // websocket replays stream for as long as the client watches
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", *addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Println("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("shutdown: %v", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("serve: %v", err)
		}
	}
}

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "arcaded-data"
	}
	return filepath.Join(base, "arcaded")
}
