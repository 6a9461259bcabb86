package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/vitwit/x402-transfer/facilitator"
	"github.com/vitwit/x402-transfer/logger"
)

type config struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8402"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
}

func newConfig() (config, error) {
	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		return config{}, fmt.Errorf("failed to process env var: %w", err)
	}
	return cfg, nil
}

func main() {
	cfg, err := newConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	log := logger.NewZapLogger(cfg.LogLevel)
	srv := facilitator.NewServer(facilitator.DefaultNetworks, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.ListenAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server stopped", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
	case sig := <-sigCh:
		log.Info("received exit signal", map[string]interface{}{"signal": sig.String()})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("shutdown failed", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
	}
}
