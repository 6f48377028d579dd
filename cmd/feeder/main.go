package main

import (
	"context"
	"encoding/json"
	"flag"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"microgrid-console/internal/api"
	"microgrid-console/internal/config"
	"microgrid-console/internal/domain"
	"microgrid-console/internal/sim"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	mode := flag.String("mode", "http", "delivery mode: http or mqtt")
	count := flag.Int("count", 100, "number of readings to send")
	interval := flag.Duration("interval", time.Second, "delay between readings")
	scenario := flag.String("scenario", sim.ScenarioNormal, "normal or stress")
	flag.Parse()

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	gen := sim.NewGenerator(*scenario)
	send := sender(*mode)

	sent, failed := 0, 0
	for i := 0; i < *count; i++ {
		r := gen.Next(time.Now().UTC())
		if err := send(r); err != nil {
			failed++
			log.Error().Err(err).Int("n", i+1).Msg("send failed")
		} else {
			sent++
			log.Info().Int("n", i+1).
				Float64("generation", r.Generation).
				Float64("soc", r.SOC).
				Float64("temperature", r.Temperature).
				Msg("reading sent")
		}
		if i < *count-1 {
			time.Sleep(*interval)
		}
	}
	log.Info().Int("sent", sent).Int("failed", failed).Msg("feed done")
}

func sender(mode string) func(domain.SensorReading) error {
	switch mode {
	case "http":
		client := api.New(config.BackendURL(), config.HTTPTimeout())
		if err := client.Health(context.Background()); err != nil {
			log.Fatal().Err(err).Str("backend", config.BackendURL()).Msg("backend unreachable")
		}
		return func(r domain.SensorReading) error {
			_, err := client.PushReading(context.Background(), r)
			return err
		}
	case "mqtt":
		broker := config.MQTTBroker()
		if broker == "" {
			log.Fatal().Msg("MQTT_BROKER must be set for mqtt mode")
		}
		opts := mqtt.NewClientOptions().AddBroker(broker)
		client := mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Fatal().Err(token.Error()).Msg("mqtt connect")
		}
		return func(r domain.SensorReading) error {
			payload, err := json.Marshal(r)
			if err != nil {
				return err
			}
			token := client.Publish(sim.ReadingsTopic, 0, false, payload)
			token.Wait()
			return token.Error()
		}
	default:
		log.Fatal().Str("mode", mode).Msg("unknown mode")
		return nil
	}
}
