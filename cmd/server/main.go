package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clientportal/portal-auth/accounts/repofake"
	"github.com/clientportal/portal-auth/auth/repofake"
	"github.com/clientportal/portal-auth/internal/config"
	"github.com/clientportal/portal-auth/server"
	"github.com/clientportal/portal-auth/serviceauth"
	"github.com/clientportal/portal-auth/serviceclients/repofake"
	"github.com/clientportal/portal-auth/tempsession/repofake"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	for {
		if err := run(logger); err != nil {
			logger.Fatal().Err(err).Msg("error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	logger.Info().Msg("server stopped")
}

func run(logger zerolog.Logger) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	repos := server.Repos{
		Accounts:       fakeaccountrepo.NewFakeAccountRepo(),
		CredSessions:   fakeauthrepo.NewFakeSessionRepo(),
		Grants:         fakeauthrepo.NewFakeGrantRepo(),
		TempSessions:   fakesessionrepo.NewFakeSessionRepo(),
		ServiceClients: fakeclientrepo.NewFakeClientRepo(),
	}

	srv, err := server.New(c, repos, nonceStore(c, logger), logger)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer, logger)
	waitForStopSignal()
	return shutdown(httpServer)
}

// nonceStore prefers Redis so proof nonces survive restarts and are shared
// across replicas; without REDIS_ADDR it degrades to a per-process store.
func nonceStore(c config.Config, logger zerolog.Logger) serviceauth.NonceStore {
	addr := c.GetRedisAddr()
	if addr == "" {
		logger.Warn().Msg("REDIS_ADDR not set, using in-memory nonce store")
		return serviceauth.NewMemoryNonceStore()
	}
	logger.Info().Str("addr", addr).Msg("using redis nonce store")
	return serviceauth.NewRedisNonceStore(redis.NewClient(&redis.Options{Addr: addr}))
}

func listenAndServe(httpServer *http.Server, logger zerolog.Logger) error {
	logger.Info().Str("addr", httpServer.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
