package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/facebookgo/httpdown"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration invalid")
	}
	initLogger(cfg.LogLevel)

	handler, h := newHandler(cfg)

	// Prepare the stoppable HTTP server.
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}
	hd := &httpdown.HTTP{
		StopTimeout: 10 * time.Second,
		KillTimeout: 1 * time.Second,
	}
	s, err := hd.ListenAndServe(server)
	if err != nil {
		log.Fatal().Err(err).Msg("listen failed")
	}
	log.Info().Int("port", cfg.Port).Str("ws_path", cfg.WSPath).
		Str("environment", cfg.Environment).Msg("pushhub listening")

	// Background maintenance shares one ticker and stops with the server.
	ticker := newMTicker(5 * time.Minute)
	go h.sweepLoop(ticker.subscribe())
	go h.statsLoop(ticker.subscribe())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	ticker.stop()
	h.shutdown()
	finalMetrics()
	if err := s.Stop(); err != nil {
		log.Error().Err(err).Msg("server stop failed")
		os.Exit(1)
	}
	if err := s.Wait(); err != nil {
		log.Error().Err(err).Msg("server wait failed")
		os.Exit(1)
	}
}

func initLogger(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}
