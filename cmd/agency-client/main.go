package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/radieske/lottery-agency-poc/internal/agency-client/client"
	"github.com/radieske/lottery-agency-poc/internal/shared/logger"
)

func main() {
	cfgPath := "./config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := client.LoadConfig(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "agency-client: config:", err)
		os.Exit(1)
	}

	log, err := logger.New(fmt.Sprintf("agency-%d", cfg.ID), cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "agency-client: logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	// SIGTERM fecha a conexão com o servidor e encerra
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	f, err := os.Open(cfg.DataFile)
	if err != nil {
		log.Error("open bets file", zap.String("file", cfg.DataFile), zap.Error(err))
		os.Exit(1)
	}
	defer f.Close()

	_, err = client.New(cfg, log).Run(ctx, f)
	switch {
	case err == nil:
		log.Info("client finished", zap.String("action", "exit"), zap.String("result", "success"))
	case errors.Is(err, context.Canceled):
		log.Info("client interrupted", zap.String("action", "exit"), zap.String("result", "interrupted"))
	default:
		log.Error("client failed", zap.String("action", "exit"), zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}
