package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/auth"
	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/config"
	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/connect"
	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/llm"
	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/server"
	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/store"
	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/throttle"
	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/trigger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and background trigger job",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Resolve database path
	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// LLM client + completer. Without one, the AI endpoints and the
	// trigger job degrade; the lifecycle API keeps working.
	var completer *llm.Completer
	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: LLM not configured (%v), generation disabled\n", err)
	} else {
		completer = llm.NewCompleter(llmClient)
		fmt.Fprintf(os.Stderr, "  llm: %s (%s)\n", cfg.LLM.Provider, cfg.LLM.Model)
	}

	// Identity gate
	var verifier auth.Verifier
	switch cfg.Auth.Mode {
	case "remote":
		verifier, err = auth.NewRemoteVerifier(cfg.Auth.ServiceURL)
	default:
		verifier, err = auth.NewLocalVerifier(cfg.Auth.Secret)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: auth not configured (%v), requests will be rejected\n", err)
		verifier = nil
	}
	bypass := auth.NewBypass(cfg.Env, cfg.Auth.TestToken, cfg.Auth.TestUserID)

	// Throttle
	limiter := throttle.New(cfg.Throttle)
	defer limiter.Stop()

	// Provider credential exchange
	var creds *connect.Credentials
	if exchanger, err := connect.NewExchanger(cfg.OAuth); err != nil {
		fmt.Fprintf(os.Stderr, "warning: provider oauth not configured (%v)\n", err)
	} else {
		creds = connect.NewCredentials(db, exchanger)
	}

	// Background trigger job
	if completer != nil {
		eng := trigger.New(db, completer, cfg.Trigger)
		eng.Start()
		defer eng.Stop()
		fmt.Fprintf(os.Stderr, "  trigger: every %ds, %q x%d in %ds\n",
			cfg.Trigger.IntervalSeconds, cfg.Trigger.EventType, cfg.Trigger.Threshold, cfg.Trigger.LookbackSeconds)
	}

	srv := server.New(db, completer, creds, limiter, verifier, bypass, cfg, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "scheduleflow serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", dbPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
