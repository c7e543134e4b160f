package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/blockpass/internal/cli"
	"github.com/dmitrijs2005/blockpass/internal/config"
	"github.com/dmitrijs2005/blockpass/internal/logging"
	"github.com/dmitrijs2005/blockpass/internal/repositories/repomanager"
	"github.com/dmitrijs2005/blockpass/internal/services"
)

func main() {
	// wipe locked key buffers on interrupt and on every exit path
	memguard.CatchInterrupt()
	defer memguard.Purge()

	if err := run(); err != nil {
		memguard.Purge()
		log.Fatalf("%v", err)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	logger, err := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}

	repo, err := repomanager.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	us, err := services.NewUserService(repo, cfg, logger)
	if err != nil {
		return err
	}
	vs := services.NewVaultService(repo, logger)

	cli.NewStdApp(us, vs).Run(ctx)
	return nil
}
