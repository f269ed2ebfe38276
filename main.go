package main

import (
	"context"
	"errors"
	"jarvis/app/api"
	"jarvis/app/bot"
	"jarvis/app/client/intelligence"
	"jarvis/app/client/pipeline"
	"jarvis/app/client/storage"
	"jarvis/app/config"
	"jarvis/app/service/actions"
	"jarvis/app/service/conversation"
	"jarvis/app/service/dedup"
	"jarvis/app/service/ingest"
	"jarvis/app/service/pending"
	"jarvis/app/service/router"
	"jarvis/app/util/mylog"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, pipeline.NewClient)
	do.Provide(di, intelligence.NewClient)
	do.Provide(di, storage.NewClient)
	do.Provide(di, dedup.New)
	do.Provide(di, actions.New)
	do.Provide(di, pending.New)
	do.Provide(di, conversation.New)
	do.Provide(di, router.New)
	do.Provide(di, ingest.New)
	do.Provide(di, bot.New)
	do.Provide(di, api.New)

	slog.Info("Service started")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	g, gCtx := errgroup.WithContext(appCtx)

	g.Go(func() error {
		return do.MustInvoke[*bot.Service](di).Run(gCtx)
	})

	g.Go(func() error {
		return do.MustInvoke[*api.Server](di).Run(gCtx)
	})

	if err = g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("service failed: %v", err)
	}
}
