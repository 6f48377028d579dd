package sim

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"microgrid-console/internal/domain"
)

// ReadingsTopic carries sensor readings published by field devices.
const ReadingsTopic = "microgrid/readings"

// MQTTIngest routes readings from the broker through the ingest
// pipeline, so hardware sensors and the HTTP feed share one path.
type MQTTIngest struct {
	client mqtt.Client
}

func StartMQTTIngest(broker string, engine *Engine) (*MQTTIngest, error) {
	opts := mqtt.NewClientOptions().AddBroker(broker)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		var reading domain.SensorReading
		if err := json.Unmarshal(msg.Payload(), &reading); err != nil {
			log.Warn().Err(err).Str("topic", msg.Topic()).Msg("mqtt payload decode failed")
			return
		}
		if _, _, err := engine.Ingest(context.Background(), reading); err != nil {
			log.Error().Err(err).Msg("mqtt ingest failed")
		}
	}

	if token := client.Subscribe(ReadingsTopic, 0, handler); token.Wait() && token.Error() != nil {
		client.Disconnect(250)
		return nil, fmt.Errorf("mqtt subscribe: %w", token.Error())
	}

	log.Info().Str("broker", broker).Str("topic", ReadingsTopic).Msg("mqtt ingest subscribed")
	return &MQTTIngest{client: client}, nil
}

func (m *MQTTIngest) Close() {
	m.client.Disconnect(250)
}
