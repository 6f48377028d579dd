package domain

type SensorReading struct {
	ID          int64   `db:"id" json:"id"`
	Timestamp   Time    `db:"timestamp" json:"timestamp"`
	Generation  float64 `db:"generation" json:"generation"`
	Storage     float64 `db:"storage" json:"storage"`
	SOC         float64 `db:"soc" json:"soc"`
	Temperature float64 `db:"temperature" json:"temperature"`
	Voltage     float64 `db:"voltage" json:"voltage"`
}

type Alert struct {
	ID        int64    `db:"id" json:"id"`
	Timestamp Time     `db:"timestamp" json:"timestamp"`
	AlertType string   `db:"alert_type" json:"alert_type"`
	Severity  Severity `db:"severity" json:"severity"`
	Message   string   `db:"message" json:"message"`
	Value     float64  `db:"value" json:"value"`
	Threshold float64  `db:"threshold" json:"threshold"`
	Resolved  Flag     `db:"resolved" json:"resolved"`
}

// SystemStatus is replaced wholesale on every fetch, never merged field by field.
type SystemStatus struct {
	Timestamp         Time              `json:"timestamp"`
	SystemHealth      Health            `json:"system_health"`
	SensorReadings    *SensorReading    `json:"sensor_readings,omitempty"`
	Alerts            AlertsSummary     `json:"alerts"`
	EfficiencyTargets EfficiencyTargets `json:"efficiency_targets"`
	BatteryForecast   *BatteryForecast  `json:"battery_forecast,omitempty"`
	SolarForecast6H   *SolarForecast    `json:"solar_forecast_6h,omitempty"`
}

type AlertsSummary struct {
	ActiveCount   int           `json:"active_count"`
	CriticalCount int           `json:"critical_count"`
	RecentAlerts  []RecentAlert `json:"recent_alerts"`
}

type RecentAlert struct {
	Type      string   `json:"type"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
	Timestamp Time     `json:"timestamp"`
}

type EfficiencyTargets struct {
	Target15Met       bool    `json:"target_15_met"`
	Target30Met       bool    `json:"target_30_met"`
	CurrentEfficiency float64 `json:"current_efficiency"`
	Target15Status    string  `json:"target_15_status"`
	Target30Status    string  `json:"target_30_status"`
	Target15Gap       float64 `json:"target_15_gap"`
	Target30Gap       float64 `json:"target_30_gap"`
}

type BatteryForecast struct {
	Timestamp               Time    `json:"timestamp"`
	CurrentSOC              float64 `json:"current_soc"`
	DepletionRate           float64 `json:"depletion_rate"`
	BackupHours             float64 `json:"backup_hours"`
	CriticalLoadBackupHours float64 `json:"critical_load_backup_hours"`
	Confidence              float64 `json:"confidence"`
	LoadScenario            string  `json:"load_scenario"`
}

type SolarForecast struct {
	Timestamp       Time    `json:"timestamp"`
	ForecastHorizon int     `json:"forecast_horizon"`
	PredictedPower  float64 `json:"predicted_power"`
	Confidence      float64 `json:"confidence"`
}

type Statistics struct {
	AvgGeneration   float64     `json:"avg_generation"`
	AvgStorage      float64     `json:"avg_storage"`
	AvgTemperature  float64     `json:"avg_temperature"`
	AvgSOC          float64     `json:"avg_soc"`
	AvgVoltage      float64     `json:"avg_voltage"`
	MaxTemperature  float64     `json:"max_temperature"`
	MinSOC          float64     `json:"min_soc"`
	MinVoltage      float64     `json:"min_voltage"`
	DataPoints      int         `json:"data_points"`
	EfficiencyScore float64     `json:"efficiency_score"`
	GenerationTrend string      `json:"generation_trend"`
	Predictions     Predictions `json:"predictions"`
}

type Predictions struct {
	NextHourGeneration        float64 `json:"next_hour_generation"`
	StorageDepletionHours     float64 `json:"storage_depletion_hours"`
	MaintenanceRecommendation string  `json:"maintenance_recommendation"`
}
