package sim

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"microgrid-console/internal/domain"
)

type captureBroadcaster struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (c *captureBroadcaster) Broadcast(msg domain.Message) {
	c.mu.Lock()
	c.msgs = append(c.msgs, msg)
	c.mu.Unlock()
}

func (c *captureBroadcaster) messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Message(nil), c.msgs...)
}

func TestIngestThresholds(t *testing.T) {
	tests := []struct {
		name       string
		reading    domain.SensorReading
		wantTypes  []string
		severities []domain.Severity
	}{
		{
			name:    "nominal",
			reading: domain.SensorReading{Generation: 500, Storage: 3, SOC: 60, Temperature: 40, Voltage: 240},
		},
		{
			name:       "high temperature",
			reading:    domain.SensorReading{SOC: 60, Temperature: 85, Voltage: 240},
			wantTypes:  []string{"temperature"},
			severities: []domain.Severity{domain.SeverityHigh},
		},
		{
			name:       "critical temperature",
			reading:    domain.SensorReading{SOC: 60, Temperature: 105, Voltage: 240},
			wantTypes:  []string{"temperature"},
			severities: []domain.Severity{domain.SeverityCritical},
		},
		{
			name:       "low battery",
			reading:    domain.SensorReading{SOC: 25, Temperature: 40, Voltage: 240},
			wantTypes:  []string{"soc"},
			severities: []domain.Severity{domain.SeverityMedium},
		},
		{
			name:       "critical battery",
			reading:    domain.SensorReading{SOC: 10, Temperature: 40, Voltage: 240},
			wantTypes:  []string{"soc"},
			severities: []domain.Severity{domain.SeverityCritical},
		},
		{
			name:       "voltage drop",
			reading:    domain.SensorReading{SOC: 60, Temperature: 40, Voltage: 190},
			wantTypes:  []string{"voltage"},
			severities: []domain.Severity{domain.SeverityHigh},
		},
		{
			name:       "critical voltage",
			reading:    domain.SensorReading{SOC: 60, Temperature: 40, Voltage: 170},
			wantTypes:  []string{"voltage"},
			severities: []domain.Severity{domain.SeverityCritical},
		},
		{
			name:       "everything wrong at once",
			reading:    domain.SensorReading{SOC: 5, Temperature: 120, Voltage: 160},
			wantTypes:  []string{"temperature", "soc", "voltage"},
			severities: []domain.Severity{domain.SeverityCritical, domain.SeverityCritical, domain.SeverityCritical},
		},
		{
			// Thresholds are strict comparisons; landing exactly on one
			// raises nothing.
			name:    "exact boundaries",
			reading: domain.SensorReading{SOC: 30, Temperature: 80, Voltage: 200},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(NewMemStore(), nil)
			_, created, err := engine.Ingest(context.Background(), tt.reading)
			if err != nil {
				t.Fatalf("Ingest: %v", err)
			}
			if len(created) != len(tt.wantTypes) {
				t.Fatalf("created %d alerts, want %d: %+v", len(created), len(tt.wantTypes), created)
			}
			for i, a := range created {
				if a.AlertType != tt.wantTypes[i] {
					t.Errorf("alert[%d].AlertType = %q, want %q", i, a.AlertType, tt.wantTypes[i])
				}
				if a.Severity != tt.severities[i] {
					t.Errorf("alert[%d].Severity = %q, want %q", i, a.Severity, tt.severities[i])
				}
			}
		})
	}
}

func TestIngestAlertMessages(t *testing.T) {
	engine := NewEngine(NewMemStore(), nil)
	_, created, err := engine.Ingest(context.Background(),
		domain.SensorReading{SOC: 12, Temperature: 85.5, Voltage: 190})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	want := map[string]string{
		"temperature": "High temperature detected: 85.5°C",
		"soc":         "Low battery: 12% SOC",
		"voltage":     "Voltage drop detected: 190V",
	}
	for _, a := range created {
		if a.Message != want[a.AlertType] {
			t.Errorf("%s message = %q, want %q", a.AlertType, a.Message, want[a.AlertType])
		}
	}
}

func TestIngestRejectsInvalidReadings(t *testing.T) {
	store := NewMemStore()
	engine := NewEngine(store, nil)

	bad := []domain.SensorReading{
		{SOC: 150},
		{SOC: -1},
		{SOC: 50, Generation: -10},
		{SOC: 50, Storage: -0.5},
		{SOC: 50, Voltage: -230},
	}
	for _, r := range bad {
		_, _, err := engine.Ingest(context.Background(), r)
		var verr *ReadingError
		if !errors.As(err, &verr) {
			t.Errorf("reading %+v: error = %v, want ReadingError", r, err)
		}
	}

	if latest, _ := store.LatestReading(context.Background()); latest != nil {
		t.Error("invalid readings must not be stored")
	}
}

func TestIngestBroadcasts(t *testing.T) {
	bc := &captureBroadcaster{}
	engine := NewEngine(NewMemStore(), bc)

	stored, _, err := engine.Ingest(context.Background(),
		domain.SensorReading{SOC: 60, Temperature: 95, Voltage: 240})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	msgs := bc.messages()
	if len(msgs) != 2 {
		t.Fatalf("broadcast %d messages, want sensor_data + alert", len(msgs))
	}
	if msgs[0].Type != domain.MsgSensorData {
		t.Errorf("first message type = %q", msgs[0].Type)
	}
	var echoed domain.SensorReading
	if err := json.Unmarshal(msgs[0].Data, &echoed); err != nil {
		t.Fatalf("sensor_data payload: %v", err)
	}
	if echoed.ID != stored.ID {
		t.Errorf("payload id = %d, want %d", echoed.ID, stored.ID)
	}
	if msgs[1].Type != domain.MsgAlert {
		t.Errorf("second message type = %q", msgs[1].Type)
	}
}
