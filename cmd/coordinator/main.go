package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/absmach/fedavg/fedavgd"
)

func main() {
	cfg, err := fedavgd.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)

	if err := fedavgd.StartCoordinator(ctx, cancel, cfg); err != nil {
		stop()
		log.Fatal(err)
	}
}
