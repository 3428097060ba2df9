package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/dharsanguruparan/photojobs/internal/app"
	"github.com/dharsanguruparan/photojobs/internal/config"
	"github.com/dharsanguruparan/photojobs/internal/logging"
	"github.com/dharsanguruparan/photojobs/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logging: %v\n", err)
		os.Exit(1)
	}

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open app")
	}
	defer a.Close()

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.Workers,
		Queues:      map[string]int{cfg.Queue: 1},
		Logger:      log,
	})
	processor := worker.NewProcessor(a.Runner, log)
	mux := processor.Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	log.WithField("queue", cfg.Queue).Infof("worker started with %d workers", cfg.Workers)
	if err := server.Run(mux); err != nil {
		log.WithError(err).Error("worker stopped")
		a.Close()
		os.Exit(1)
	}
}
