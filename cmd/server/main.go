package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/day2-ai/frameio-kit/encryption"
	"github.com/day2-ai/frameio-kit/internal/config"
	"github.com/day2-ai/frameio-kit/oauth"
	"github.com/day2-ai/frameio-kit/server"
	"github.com/day2-ai/frameio-kit/storage"
	"github.com/day2-ai/frameio-kit/storage/file"
	"github.com/day2-ai/frameio-kit/storage/postgres"
	"github.com/day2-ai/frameio-kit/storage/redis"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	store, err := newStore(c)
	if err != nil {
		return fmt.Errorf("newStore: %w", err)
	}

	enc, err := encryption.New("", c.GetEncryptionKey())
	if err != nil {
		return fmt.Errorf("encryption.New: %w", err)
	}

	client := oauth.NewIMSClient(
		c.GetClientID(),
		c.GetClientSecret(),
		c.GetRedirectURI(),
		c.GetScopes(),
		oauth.WithTimeout(c.GetHTTPTimeout()),
	)
	tokens := oauth.NewManager(store, enc, client,
		oauth.WithRefreshBuffer(c.GetRefreshBuffer()),
		oauth.WithGraceWindow(c.GetTokenGraceWindow()),
		oauth.WithLogger(logger),
	)
	flow := oauth.NewFlow(client, tokens, store,
		oauth.WithStateTTL(c.GetStateTTL()),
		oauth.WithStateTokenLength(c.GetStateTokenLength()),
	)

	// Installation endpoints come up only in embedding applications that
	// supply a RemoteAPI implementation; this binary serves the OAuth flow.
	handler, err := server.New(c, flow, tokens, nil, logger)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	srv := &http.Server{Addr: c.GetPort(), Handler: handler}
	go listenAndServe(srv)
	waitForStopSignal()
	returnError = shutdown(srv)
	return returnError
}

func newStore(c config.Config) (storage.Store, error) {
	switch c.GetStorageBackend() {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "file":
		return file.New(c.GetDataFolder())
	case "redis":
		return redis.New(c.GetRedisAddr(), c.GetRedisPassword()), nil
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return postgres.New(ctx, c.GetDatabaseDSN())
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.GetStorageBackend())
	}
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
