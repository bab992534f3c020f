package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"sleipnir/internal/config"
	"sleipnir/internal/engine"
	"sleipnir/internal/net"
	"sleipnir/internal/wal"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	cfg := config.Load()

	w := wal.New(cfg.WALPath)
	eng := engine.New(w)

	// Restore must finish before the first submit is accepted; a corrupt
	// snapshot or WAL line aborts startup rather than serving bad state.
	if _, err := eng.Restore(); err != nil {
		log.Fatal().Err(err).Str("wal", w.Path()).Msg("restore failed")
	}

	srv := net.New(cfg.HTTPAddr, eng)
	go func() {
		if err := srv.Run(ctx); err != nil {
			log.Error().Err(err).Msg("server exited")
			stop()
		}
	}()

	<-ctx.Done()

	// Best effort: collapse the log into a snapshot on the way out. The
	// WAL already covers everything, so a failure here only costs replay
	// time on the next start.
	if err := eng.Shutdown(); err != nil {
		log.Error().Err(err).Msg("shutdown snapshot failed")
	}
}
