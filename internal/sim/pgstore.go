package sim

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"microgrid-console/internal/domain"
)

// PGStore persists readings and alerts in Postgres using the same two
// tables the backend keeps.
type PGStore struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS sensor_data (
	id BIGSERIAL PRIMARY KEY,
	timestamp TIMESTAMPTZ NOT NULL DEFAULT now(),
	generation DOUBLE PRECISION NOT NULL,
	storage DOUBLE PRECISION NOT NULL,
	soc DOUBLE PRECISION NOT NULL,
	temperature DOUBLE PRECISION NOT NULL,
	voltage DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sensor_data_timestamp ON sensor_data (timestamp);

CREATE TABLE IF NOT EXISTS alerts (
	id BIGSERIAL PRIMARY KEY,
	timestamp TIMESTAMPTZ NOT NULL DEFAULT now(),
	alert_type TEXT NOT NULL,
	severity TEXT NOT NULL,
	message TEXT NOT NULL,
	value DOUBLE PRECISION NOT NULL,
	threshold DOUBLE PRECISION NOT NULL,
	resolved BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts (timestamp);
`

func ConnectPG(dsn string) (*PGStore, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &PGStore{db: db}, nil
}

func (s *PGStore) Close() error { return s.db.Close() }

func (s *PGStore) AddReading(ctx context.Context, r domain.SensorReading) (domain.SensorReading, error) {
	if r.Timestamp.IsZero() {
		r.Timestamp = domain.Now()
	}
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO sensor_data(timestamp, generation, storage, soc, temperature, voltage)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		r.Timestamp, r.Generation, r.Storage, r.SOC, r.Temperature, r.Voltage).Scan(&r.ID)
	return r, err
}

func (s *PGStore) LatestReading(ctx context.Context) (*domain.SensorReading, error) {
	var out domain.SensorReading
	err := s.db.GetContext(ctx, &out,
		`SELECT id, timestamp, generation, storage, soc, temperature, voltage
		 FROM sensor_data ORDER BY timestamp DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *PGStore) ReadingsSince(ctx context.Context, since time.Time) ([]domain.SensorReading, error) {
	out := []domain.SensorReading{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, timestamp, generation, storage, soc, temperature, voltage
		 FROM sensor_data WHERE timestamp >= $1 ORDER BY timestamp ASC`, since)
	return out, err
}

func (s *PGStore) Readings(ctx context.Context, limit int) ([]domain.SensorReading, error) {
	if limit <= 0 {
		limit = 100
	}
	out := []domain.SensorReading{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, timestamp, generation, storage, soc, temperature, voltage
		 FROM sensor_data ORDER BY timestamp DESC LIMIT $1`, limit)
	return out, err
}

func (s *PGStore) AddAlert(ctx context.Context, a domain.Alert) (domain.Alert, error) {
	if a.Timestamp.IsZero() {
		a.Timestamp = domain.Now()
	}
	a.Resolved = false
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO alerts(timestamp, alert_type, severity, message, value, threshold, resolved)
		 VALUES ($1,$2,$3,$4,$5,$6,FALSE) RETURNING id`,
		a.Timestamp, a.AlertType, a.Severity, a.Message, a.Value, a.Threshold).Scan(&a.ID)
	return a, err
}

func (s *PGStore) Alerts(ctx context.Context, activeOnly bool, limit int) ([]domain.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	out := []domain.Alert{}
	query := `SELECT id, timestamp, alert_type, severity, message, value, threshold, resolved
		 FROM alerts ORDER BY timestamp DESC LIMIT $1`
	if activeOnly {
		query = `SELECT id, timestamp, alert_type, severity, message, value, threshold, resolved
		 FROM alerts WHERE resolved = FALSE ORDER BY timestamp DESC LIMIT $1`
	}
	err := s.db.SelectContext(ctx, &out, query, limit)
	return out, err
}

func (s *PGStore) ResolveAlert(ctx context.Context, id int64) (*domain.Alert, error) {
	var out domain.Alert
	err := s.db.GetContext(ctx, &out,
		`UPDATE alerts SET resolved = TRUE WHERE id = $1
		 RETURNING id, timestamp, alert_type, severity, message, value, threshold, resolved`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
