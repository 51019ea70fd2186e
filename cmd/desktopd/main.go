package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/thehaigo/desktop/internal/domain/env"
	"github.com/thehaigo/desktop/internal/domain/relay"
	"github.com/thehaigo/desktop/internal/infrastructure/config"
	"github.com/thehaigo/desktop/internal/infrastructure/server"
)

func main() {
	manifestPath := flag.String("manifest", "", "App manifest path (overrides DESKTOP_MANIFEST)")
	dev := flag.Bool("dev", false, "Development mode (console logs, debug level)")
	flag.Parse()

	// Optional .env for development setups; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *manifestPath != "" {
		cfg.Manifest.Path = *manifestPath
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	// The OS launches a fresh process for every opened document. When a
	// primary instance already owns the control surface, hand it our
	// arguments and exit; the user sees one application.
	if cfg.Relay.Enabled && forwardToPrimary(cfg, flag.Args()) {
		return
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Boot arguments go out before any window attaches; the coordinator
	// buffers them for the first subscriber.
	publishBootArgs(srv.Env(), flag.Args())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
	case <-srv.Quit():
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}

// forwardToPrimary reports whether a live primary instance accepted the
// launch arguments.
func forwardToPrimary(cfg *config.Config, args []string) bool {
	baseURL := cfg.Relay.BaseURL
	if baseURL == "" {
		baseURL = "http://" + cfg.Server.Addr()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	peer := relay.New(baseURL)
	if !peer.Ping(ctx) {
		return false
	}

	if len(args) == 0 {
		// No documents, but the user still activated the app.
		if err := peer.Forward(ctx, env.KindReopenApp, nil); err != nil {
			log.Printf("Forward to primary failed: %v", err)
		}
		return true
	}
	for _, arg := range args {
		if err := peer.Forward(ctx, classify(arg), []string{arg}); err != nil {
			log.Printf("Forward to primary failed: %v", err)
		}
	}
	return true
}

func publishBootArgs(environment *env.Env, args []string) {
	for _, arg := range args {
		environment.Publish(env.NewEvent(classify(arg), arg))
	}
}

// classify maps a launch argument to the lifecycle event it represents.
func classify(arg string) env.Kind {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return env.KindOpenURL
	}
	return env.KindOpenFile
}
