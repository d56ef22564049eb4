package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redtalon/talonbot/internal/bot"
)

func main() {
	configPath := flag.String("config", "conf/config.yaml", "path to the bot configuration file")
	flag.Parse()

	cfg, err := bot.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	b, err := bot.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer b.Stop()

	log.Println("running… press Ctrl+C to stop")

	<-ctx.Done()
}
