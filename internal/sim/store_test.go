package sim

import (
	"context"
	"testing"
	"time"

	"microgrid-console/internal/domain"
)

func TestMemStoreReadings(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		r := domain.SensorReading{
			Timestamp:  domain.NewTime(base.Add(time.Duration(i) * time.Hour)),
			Generation: float64(100 * (i + 1)),
			SOC:        50,
		}
		stored, err := store.AddReading(ctx, r)
		if err != nil {
			t.Fatalf("AddReading: %v", err)
		}
		if stored.ID != int64(i+1) {
			t.Fatalf("id = %d, want %d", stored.ID, i+1)
		}
	}

	latest, err := store.LatestReading(ctx)
	if err != nil || latest == nil {
		t.Fatalf("LatestReading: %v, %v", latest, err)
	}
	if latest.ID != 3 {
		t.Errorf("latest id = %d, want 3", latest.ID)
	}

	since, err := store.ReadingsSince(ctx, base.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("ReadingsSince: %v", err)
	}
	if len(since) != 2 {
		t.Fatalf("window = %d readings, want 2", len(since))
	}
	if !since[0].Timestamp.Before(since[1].Timestamp.Time) {
		t.Error("ReadingsSince must be ascending")
	}

	newest, err := store.Readings(ctx, 2)
	if err != nil {
		t.Fatalf("Readings: %v", err)
	}
	if len(newest) != 2 || newest[0].ID != 3 {
		t.Errorf("Readings(2) = %+v, want newest first", newest)
	}
}

func TestMemStoreEmptyLatest(t *testing.T) {
	store := NewMemStore()
	latest, err := store.LatestReading(context.Background())
	if err != nil {
		t.Fatalf("LatestReading: %v", err)
	}
	if latest != nil {
		t.Fatalf("empty store returned %+v", latest)
	}
}

func TestMemStoreFillsZeroTimestamp(t *testing.T) {
	store := NewMemStore()
	stored, err := store.AddReading(context.Background(), domain.SensorReading{SOC: 10})
	if err != nil {
		t.Fatalf("AddReading: %v", err)
	}
	if stored.Timestamp.IsZero() {
		t.Error("zero timestamp should be replaced with now")
	}
}

func TestMemStoreAlertLifecycle(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	// Resolved is ignored on insert; new alerts always start active.
	a, err := store.AddAlert(ctx, domain.Alert{AlertType: "soc", Severity: domain.SeverityCritical, Resolved: true})
	if err != nil {
		t.Fatalf("AddAlert: %v", err)
	}
	if a.Resolved.Bool() {
		t.Fatal("new alert must be unresolved")
	}

	active, err := store.Alerts(ctx, true, 0)
	if err != nil || len(active) != 1 {
		t.Fatalf("active alerts = %v, %v", active, err)
	}

	resolved, err := store.ResolveAlert(ctx, a.ID)
	if err != nil {
		t.Fatalf("ResolveAlert: %v", err)
	}
	if resolved == nil || !resolved.Resolved.Bool() {
		t.Fatalf("resolve did not flip flag: %+v", resolved)
	}

	active, _ = store.Alerts(ctx, true, 0)
	if len(active) != 0 {
		t.Errorf("resolved alert still listed active: %+v", active)
	}
	all, _ := store.Alerts(ctx, false, 0)
	if len(all) != 1 {
		t.Errorf("all alerts = %d, want 1", len(all))
	}

	missing, err := store.ResolveAlert(ctx, 999)
	if err != nil {
		t.Fatalf("ResolveAlert(999): %v", err)
	}
	if missing != nil {
		t.Errorf("unknown id resolved to %+v", missing)
	}
}

func TestMemStoreAlertsNewestFirstWithLimit(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := store.AddAlert(ctx, domain.Alert{
			Timestamp: domain.NewTime(base.Add(time.Duration(i) * time.Minute)),
			AlertType: "temperature",
			Severity:  domain.SeverityHigh,
		})
		if err != nil {
			t.Fatalf("AddAlert: %v", err)
		}
	}

	got, err := store.Alerts(ctx, false, 3)
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("limit ignored: got %d", len(got))
	}
	if got[0].ID != 5 || got[2].ID != 3 {
		t.Errorf("order wrong: %+v", got)
	}
}
