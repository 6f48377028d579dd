package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"microgrid-console/internal/api"
	"microgrid-console/internal/config"
	"microgrid-console/internal/session"
	"microgrid-console/internal/sync"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	client := api.New(config.BackendURL(), config.HTTPTimeout())

	sessions := session.New(config.SessionFile())
	if err := sessions.Load(); err != nil {
		log.Fatal().Err(err).Msg("session load failed")
	}

	if sessions.Authenticated() {
		client.SetToken(sessions.Token())
		user, _ := sessions.Current()
		log.Info().Str("user", user.Username).Msg("session resumed")
	} else {
		username := viper.GetString("CONSOLE_USERNAME")
		if err := sessions.Login(context.Background(), client, username, viper.GetString("CONSOLE_PASSWORD")); err != nil {
			log.Fatal().Err(err).Str("user", username).Msg("login failed")
		}
		log.Info().Str("user", username).Msg("logged in")
	}

	sched := sync.New(client, sync.Options{
		PollInterval:   config.PollInterval(),
		ReconnectDelay: config.WSReconnectDelay(),
		HistoryHours:   config.HistoryHours(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)

	app := fiber.New()
	registerRoutes(app, &consoleDeps{
		sessions: sessions,
		sched:    sched,
		backend:  config.BackendURL(),
		poll:     config.PollInterval(),
		history:  config.HistoryHours(),
	})

	addr := viper.GetString("CONSOLE_ADDR")
	if addr == "" {
		addr = ":3000"
	}
	go func() {
		log.Info().Str("addr", addr).Str("backend", config.BackendURL()).Msg("console listening")
		if err := app.Listen(addr); err != nil {
			log.Fatal().Err(err).Msg("server exit")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutting down")
	sched.Stop()
	if err := app.Shutdown(); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
