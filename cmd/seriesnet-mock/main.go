package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/five82/seriesnet/internal/logging"
	"github.com/five82/seriesnet/internal/mockapi"
)

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", "127.0.0.1:3000", "listen address")
	secret := flag.String("secret", "", "token signing secret (random when empty)")
	adminUser := flag.String("admin-user", "admin", "seeded admin username")
	adminPass := flag.String("admin-pass", "admin", "seeded admin password")
	noSeed := flag.Bool("empty", false, "start without demo content")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logging.NewWriter(os.Stderr, *level).With("component", logging.ComponentMock)
	srv := mockapi.New(mockapi.Options{Secret: []byte(*secret), Logger: logger})
	if !*noSeed {
		if err := srv.Seed(mockapi.Account{Username: *adminUser, Password: *adminPass}); err != nil {
			fmt.Fprintf(os.Stderr, "seriesnet-mock: seed: %v\n", err)
			return 1
		}
	}

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", *addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "seriesnet-mock: %v\n", err)
			return 1
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "seriesnet-mock: shutdown: %v\n", err)
		return 1
	}
	return 0
}
