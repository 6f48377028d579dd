package sim

import (
	"context"
	"sort"
	"sync"
	"time"

	"microgrid-console/internal/domain"
)

// Store holds the simulator's readings and alerts. MemStore is the
// default; PGStore is used when DB_DSN is set.
type Store interface {
	AddReading(ctx context.Context, r domain.SensorReading) (domain.SensorReading, error)
	LatestReading(ctx context.Context) (*domain.SensorReading, error)
	// ReadingsSince returns readings in ascending timestamp order.
	ReadingsSince(ctx context.Context, since time.Time) ([]domain.SensorReading, error)
	// Readings returns up to limit readings, newest first.
	Readings(ctx context.Context, limit int) ([]domain.SensorReading, error)

	AddAlert(ctx context.Context, a domain.Alert) (domain.Alert, error)
	// Alerts returns up to limit alerts, newest first.
	Alerts(ctx context.Context, activeOnly bool, limit int) ([]domain.Alert, error)
	// ResolveAlert flips resolved to true exactly once. Unknown ids
	// return nil.
	ResolveAlert(ctx context.Context, id int64) (*domain.Alert, error)
}

const memCap = 10000

type MemStore struct {
	mu            sync.RWMutex
	readings      []domain.SensorReading
	alerts        []domain.Alert
	nextReadingID int64
	nextAlertID   int64
}

func NewMemStore() *MemStore {
	return &MemStore{nextReadingID: 1, nextAlertID: 1}
}

func (m *MemStore) AddReading(_ context.Context, r domain.SensorReading) (domain.SensorReading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.nextReadingID
	m.nextReadingID++
	if r.Timestamp.IsZero() {
		r.Timestamp = domain.Now()
	}
	m.readings = append(m.readings, r)
	if len(m.readings) > memCap {
		m.readings = m.readings[len(m.readings)-memCap:]
	}
	return r, nil
}

func (m *MemStore) LatestReading(_ context.Context) (*domain.SensorReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.readings) == 0 {
		return nil, nil
	}
	r := m.readings[len(m.readings)-1]
	return &r, nil
}

func (m *MemStore) ReadingsSince(_ context.Context, since time.Time) ([]domain.SensorReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.SensorReading, 0, len(m.readings))
	for _, r := range m.readings {
		if !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp.Time)
	})
	return out, nil
}

func (m *MemStore) Readings(_ context.Context, limit int) ([]domain.SensorReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.readings)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.SensorReading, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.readings[i])
	}
	return out, nil
}

func (m *MemStore) AddAlert(_ context.Context, a domain.Alert) (domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.nextAlertID
	m.nextAlertID++
	if a.Timestamp.IsZero() {
		a.Timestamp = domain.Now()
	}
	a.Resolved = false
	m.alerts = append(m.alerts, a)
	if len(m.alerts) > memCap {
		m.alerts = m.alerts[len(m.alerts)-memCap:]
	}
	return a, nil
}

func (m *MemStore) Alerts(_ context.Context, activeOnly bool, limit int) ([]domain.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Alert, 0, len(m.alerts))
	for i := len(m.alerts) - 1; i >= 0; i-- {
		a := m.alerts[i]
		if activeOnly && a.Resolved.Bool() {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MemStore) ResolveAlert(_ context.Context, id int64) (*domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts[i].Resolved = true
			a := m.alerts[i]
			return &a, nil
		}
	}
	return nil, nil
}
