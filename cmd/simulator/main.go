package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"microgrid-console/internal/config"
	"microgrid-console/internal/sim"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	var store sim.Store
	if dsn := config.DBDSN(); dsn != "" {
		pg, err := sim.ConnectPG(dsn)
		if err != nil {
			log.Fatal().Err(err).Msg("db connect failed")
		}
		defer pg.Close()
		store = pg
		log.Info().Msg("postgres store ready")
	} else {
		store = sim.NewMemStore()
		log.Info().Msg("in-memory store ready")
	}

	hub := sim.NewHub()
	defer hub.Close()

	engine := sim.NewEngine(store, hub)

	auth, err := sim.NewAuthenticator(config.JWTSecret())
	if err != nil {
		log.Fatal().Err(err).Msg("auth setup failed")
	}

	if broker := config.MQTTBroker(); broker != "" {
		ingest, err := sim.StartMQTTIngest(broker, engine)
		if err != nil {
			log.Fatal().Err(err).Msg("mqtt ingest failed")
		}
		defer ingest.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gen := sim.NewGenerator(config.SimScenario())
	go runGenerator(ctx, gen, engine, config.SimTick())

	addr := viper.GetString("SIM_ADDR")
	if addr == "" {
		addr = ":8000"
	}
	srv := &http.Server{Addr: addr, Handler: sim.NewServer(store, engine, auth, hub)}
	go func() {
		log.Info().Str("addr", addr).Str("scenario", config.SimScenario()).Msg("simulator listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server exit")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}

// runGenerator feeds synthetic readings through the same ingest path
// external sensors use. The first reading lands before the first tick so
// the API has data as soon as it accepts connections.
func runGenerator(ctx context.Context, gen *sim.Generator, engine *sim.Engine, tick time.Duration) {
	if tick <= 0 {
		tick = 5 * time.Second
	}
	ingestNext(ctx, gen, engine)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ingestNext(ctx, gen, engine)
		}
	}
}

func ingestNext(ctx context.Context, gen *sim.Generator, engine *sim.Engine) {
	reading := gen.Next(time.Now().UTC())
	stored, alerts, err := engine.Ingest(ctx, reading)
	if err != nil {
		log.Error().Err(err).Msg("generated reading rejected")
		return
	}
	if len(alerts) > 0 {
		log.Info().Int64("reading_id", stored.ID).Int("alerts", len(alerts)).Msg("thresholds crossed")
	}
}
