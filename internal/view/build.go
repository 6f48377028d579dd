package view

import (
	"time"

	"microgrid-console/internal/domain"
	"microgrid-console/internal/sync"
)

// Builders are pure: they read a snapshot and produce a view model,
// fetching nothing themselves.

type MetricCard struct {
	Metric string              `json:"metric"`
	Label  string              `json:"label"`
	Value  float64             `json:"value"`
	Unit   string              `json:"unit"`
	Status domain.MetricStatus `json:"status"`
}

type OverviewView struct {
	SystemHealth domain.Health      `json:"system_health,omitempty"`
	Cards        []MetricCard       `json:"cards"`
	Alerts       domain.AlertCounts `json:"alerts"`
	LastSync     time.Time          `json:"last_sync"`
}

func BuildOverview(snap sync.Snapshot) OverviewView {
	out := OverviewView{
		Cards:    []MetricCard{},
		Alerts:   domain.SummarizeAlerts(snap.Alerts),
		LastSync: snap.LastSync,
	}
	if snap.Status != nil {
		out.SystemHealth = snap.Status.SystemHealth
	}
	reading := currentReading(snap)
	if reading == nil {
		return out
	}
	out.Cards = []MetricCard{
		{Metric: "generation", Label: "Solar Generation", Value: reading.Generation, Unit: "W", Status: domain.StatusGood},
		{Metric: "storage", Label: "Battery Storage", Value: reading.Storage, Unit: "kWh", Status: domain.StatusGood},
		{Metric: "soc", Label: "State of Charge", Value: reading.SOC, Unit: "%", Status: domain.ClassifySOC(reading.SOC)},
		{Metric: "temperature", Label: "Temperature", Value: reading.Temperature, Unit: "°C", Status: domain.ClassifyTemperature(reading.Temperature)},
		{Metric: "voltage", Label: "Voltage", Value: reading.Voltage, Unit: "V", Status: domain.ClassifyVoltage(reading.Voltage)},
	}
	return out
}

// currentReading prefers the status payload's embedded reading and falls
// back to the newest history entry (history arrives oldest first).
func currentReading(snap sync.Snapshot) *domain.SensorReading {
	if snap.Status != nil && snap.Status.SensorReadings != nil {
		return snap.Status.SensorReadings
	}
	if len(snap.Readings) > 0 {
		return &snap.Readings[len(snap.Readings)-1]
	}
	return nil
}

type AlertsView struct {
	Alerts []domain.Alert     `json:"alerts"`
	Counts domain.AlertCounts `json:"counts"`
}

// BuildAlerts applies filter and sort presentation-side over the one
// canonical alert list.
func BuildAlerts(snap sync.Snapshot, f domain.AlertFilter) AlertsView {
	return AlertsView{
		Alerts: domain.SortAlertsByTime(domain.FilterAlerts(snap.Alerts, f)),
		Counts: domain.SummarizeAlerts(snap.Alerts),
	}
}

type DataWindow struct {
	Readings int         `json:"readings"`
	From     domain.Time `json:"from,omitempty"`
	To       domain.Time `json:"to,omitempty"`
}

type AnalyticsView struct {
	Statistics *domain.Statistics `json:"statistics,omitempty"`
	Window     DataWindow         `json:"window"`
}

func BuildAnalytics(snap sync.Snapshot) AnalyticsView {
	out := AnalyticsView{
		Statistics: snap.Stats,
		Window:     DataWindow{Readings: len(snap.Readings)},
	}
	if n := len(snap.Readings); n > 0 {
		out.Window.From = snap.Readings[0].Timestamp
		out.Window.To = snap.Readings[n-1].Timestamp
	}
	return out
}

type ForecastsView struct {
	Battery *domain.BatteryForecast  `json:"battery,omitempty"`
	Solar   *domain.SolarForecast    `json:"solar,omitempty"`
	Targets domain.EfficiencyTargets `json:"efficiency_targets"`
}

func BuildForecasts(snap sync.Snapshot) ForecastsView {
	var out ForecastsView
	if snap.Status != nil {
		out.Battery = snap.Status.BatteryForecast
		out.Solar = snap.Status.SolarForecast6H
		out.Targets = snap.Status.EfficiencyTargets
	}
	return out
}

type InsightsView struct {
	domain.Insights
}

func BuildInsights(snap sync.Snapshot) InsightsView {
	return InsightsView{snap.Insights}
}

type SettingsView struct {
	Username     string      `json:"username"`
	Role         domain.Role `json:"role"`
	BackendURL   string      `json:"backend_url"`
	PollInterval string      `json:"poll_interval"`
	HistoryHours int         `json:"history_hours"`
}

func BuildSettings(user domain.User, backendURL string, pollInterval time.Duration, historyHours int) SettingsView {
	return SettingsView{
		Username:     user.Username,
		Role:         user.Role,
		BackendURL:   backendURL,
		PollInterval: pollInterval.String(),
		HistoryHours: historyHours,
	}
}
