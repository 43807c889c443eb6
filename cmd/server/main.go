package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/arcade-arena/internal/auth"
	"github.com/DoyleJ11/arcade-arena/internal/config"
	"github.com/DoyleJ11/arcade-arena/internal/engine"
	"github.com/DoyleJ11/arcade-arena/internal/httpapi"
	"github.com/DoyleJ11/arcade-arena/internal/hub"
	"github.com/DoyleJ11/arcade-arena/internal/profile"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewDevelopmentConfig()
	if cfg.Production() {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = level
	return zcfg.Build()
}

func run(cfg config.Config, log *zap.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var profiles profile.Store = profile.StaticStore{}
	if cfg.DatabaseURL != "" {
		store, err := profile.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, store.Close()) }()
		profiles = store
	} else {
		log.Warn("DATABASE_URL not set; display names fall back to token claims")
	}

	h := hub.NewHub(ctx, hub.Config{
		MaxScore: cfg.MaxScore,
		TickRate: cfg.TickRate,
		Rules:    engine.DefaultRules(),
		Logger:   log,
	})

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:            h,
			Auth:           auth.NewVerifier(cfg.JWTSecret),
			Profiles:       profiles,
			OriginPatterns: cfg.AllowedOrigins,
			Logger:         log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		h.Post(hub.ShutdownHub{})
		<-h.Done()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
