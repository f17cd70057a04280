package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"vocabbar/internal/app"

	"github.com/rs/zerolog/log"
)

func main() {
	app.SetupEnvironment()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("vocabbar failed")
		stop()
		os.Exit(1)
	}
}
