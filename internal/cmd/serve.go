package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jimezsa/jobagg/internal/config"
	"github.com/jimezsa/jobagg/internal/server"
)

const shutdownTimeout = 10 * time.Second

type ServeCmd struct {
	Addr    string `help:"Listen address." env:"JOBAGG_SERVER_ADDR"`
	Proxies string `help:"Comma-separated proxy URLs." env:"JOBAGG_PROXIES"`
}

func (s *ServeCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	addr := firstNonEmpty(s.Addr, cfg.Server.Addr)

	proxies, err := config.LoadProxies(s.Proxies, cfg.Scraper.Proxies)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := buildService(sigCtx, cfg, proxies, ctx.Logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	srv := server.New(svc.orchestrator, server.Options{
		DefaultUserID: cfg.UserID,
		Version:       ctx.Version,
	}, ctx.Logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-sigCtx.Done():
	}

	ctx.Logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return <-errCh
}
