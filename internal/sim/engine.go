package sim

import (
	"context"
	"encoding/json"
	"fmt"

	"microgrid-console/internal/domain"
)

type Broadcaster interface {
	Broadcast(msg domain.Message)
}

// ReadingError marks a reading that failed validation, as opposed to a
// storage failure.
type ReadingError struct {
	Field  string
	Reason string
}

func (e *ReadingError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Engine runs a reading through the ingest path: validate, store,
// threshold-check, broadcast.
type Engine struct {
	store Store
	bc    Broadcaster
}

func NewEngine(store Store, bc Broadcaster) *Engine {
	return &Engine{store: store, bc: bc}
}

func (e *Engine) Ingest(ctx context.Context, r domain.SensorReading) (domain.SensorReading, []domain.Alert, error) {
	if err := validateReading(r); err != nil {
		return domain.SensorReading{}, nil, err
	}
	stored, err := e.store.AddReading(ctx, r)
	if err != nil {
		return domain.SensorReading{}, nil, fmt.Errorf("store reading: %w", err)
	}
	created, err := e.checkThresholds(ctx, stored)
	if err != nil {
		return stored, nil, fmt.Errorf("create alerts: %w", err)
	}
	e.announce(stored, created)
	return stored, created, nil
}

func validateReading(r domain.SensorReading) error {
	switch {
	case r.SOC < 0 || r.SOC > 100:
		return &ReadingError{Field: "soc", Reason: fmt.Sprintf("%.1f out of range [0,100]", r.SOC)}
	case r.Generation < 0:
		return &ReadingError{Field: "generation", Reason: fmt.Sprintf("%.1f must be non-negative", r.Generation)}
	case r.Storage < 0:
		return &ReadingError{Field: "storage", Reason: fmt.Sprintf("%.1f must be non-negative", r.Storage)}
	case r.Voltage < 0:
		return &ReadingError{Field: "voltage", Reason: fmt.Sprintf("%.1f must be non-negative", r.Voltage)}
	}
	return nil
}

// checkThresholds creates alerts for threshold crossings: temperature
// above 80°C (critical above 100), SOC below 30% (critical below 15),
// voltage below 200V (critical below 180).
func (e *Engine) checkThresholds(ctx context.Context, r domain.SensorReading) ([]domain.Alert, error) {
	var created []domain.Alert

	if r.Temperature > 80 {
		sev := domain.SeverityHigh
		if r.Temperature > 100 {
			sev = domain.SeverityCritical
		}
		a, err := e.store.AddAlert(ctx, domain.Alert{
			AlertType: "temperature",
			Message:   fmt.Sprintf("High temperature detected: %g°C", r.Temperature),
			Severity:  sev,
			Value:     r.Temperature,
			Threshold: 80,
		})
		if err != nil {
			return created, err
		}
		created = append(created, a)
	}

	if r.SOC < 30 {
		sev := domain.SeverityMedium
		if r.SOC < 15 {
			sev = domain.SeverityCritical
		}
		a, err := e.store.AddAlert(ctx, domain.Alert{
			AlertType: "soc",
			Message:   fmt.Sprintf("Low battery: %g%% SOC", r.SOC),
			Severity:  sev,
			Value:     r.SOC,
			Threshold: 30,
		})
		if err != nil {
			return created, err
		}
		created = append(created, a)
	}

	if r.Voltage < 200 {
		sev := domain.SeverityHigh
		if r.Voltage < 180 {
			sev = domain.SeverityCritical
		}
		a, err := e.store.AddAlert(ctx, domain.Alert{
			AlertType: "voltage",
			Message:   fmt.Sprintf("Voltage drop detected: %gV", r.Voltage),
			Severity:  sev,
			Value:     r.Voltage,
			Threshold: 200,
		})
		if err != nil {
			return created, err
		}
		created = append(created, a)
	}

	return created, nil
}

func (e *Engine) announce(r domain.SensorReading, alerts []domain.Alert) {
	if e.bc == nil {
		return
	}
	if data, err := json.Marshal(r); err == nil {
		e.bc.Broadcast(domain.Message{Type: domain.MsgSensorData, Data: data, Timestamp: domain.Now()})
	}
	for _, a := range alerts {
		if data, err := json.Marshal(a); err == nil {
			e.bc.Broadcast(domain.Message{Type: domain.MsgAlert, Data: data, Timestamp: domain.Now()})
		}
	}
}
