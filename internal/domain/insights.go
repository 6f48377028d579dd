package domain

// Payloads of the five /api/ai endpoints. Each is independent; a fetch
// cycle carries all of them or none.

type SolarPrediction struct {
	Timestamp           Time    `json:"timestamp"`
	PredictedGeneration float64 `json:"predicted_generation"`
	Confidence          float64 `json:"confidence"`
}

type SolarPredictionSet struct {
	Predictions       []SolarPrediction `json:"predictions"`
	AverageConfidence float64           `json:"average_confidence"`
	Method            string            `json:"method"`
}

type LoadPrediction struct {
	Timestamp     Time    `json:"timestamp"`
	PredictedLoad float64 `json:"predicted_load"`
	LoadType      string  `json:"load_type"`
}

type LoadPredictionSet struct {
	Predictions []LoadPrediction `json:"predictions"`
	PeakHours   []string         `json:"peak_hours"`
	Method      string           `json:"method"`
}

type GridSwitchAnalysis struct {
	SwitchToGrid       bool     `json:"switch_to_grid"`
	Reasons            []string `json:"reasons"`
	CurrentSOC         float64  `json:"current_soc"`
	CurrentGeneration  float64  `json:"current_generation"`
	PredictedDeficit6H float64  `json:"predicted_deficit_6h"`
	Recommendation     string   `json:"recommendation"`
}

type Fault struct {
	Type           string   `json:"type"`
	Severity       Severity `json:"severity"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation"`
}

type FaultReport struct {
	Faults []Fault `json:"faults"`
	// excellent, good, degraded, critical or unknown; a coarser scale
	// than Health, scored from fault count rather than alerts.
	SystemHealth       string `json:"system_health"`
	AnalysisTimestamp  Time   `json:"analysis_timestamp"`
	DataPointsAnalyzed int    `json:"data_points_analyzed"`
}

type LoadStrategy struct {
	Action           string   `json:"action"`
	Priority         string   `json:"priority"`
	Message          string   `json:"message"`
	LoadsToShed      []string `json:"loads_to_shed,omitempty"`
	LoadsToReduce    []string `json:"loads_to_reduce,omitempty"`
	RecommendedLoads []string `json:"recommended_loads,omitempty"`
	EstimatedSavings string   `json:"estimated_savings,omitempty"`
	Reason           string   `json:"reason,omitempty"`
	ChargingRate     string   `json:"charging_rate,omitempty"`
	TargetSOC        string   `json:"target_soc,omitempty"`
	ExcessPower      string   `json:"excess_power,omitempty"`
	EstimatedRevenue string   `json:"estimated_revenue,omitempty"`
}

type LoadSnapshot struct {
	Generation float64 `json:"generation"`
	SOC        float64 `json:"soc"`
	Hour       int     `json:"hour"`
}

type LoadManagementPlan struct {
	Strategies    []LoadStrategy `json:"optimization_strategies"`
	CurrentStatus LoadSnapshot   `json:"current_status"`
	NextReview    Time           `json:"next_review"`
}

type Insights struct {
	Solar          SolarPredictionSet `json:"solar"`
	Load           LoadPredictionSet  `json:"load"`
	GridSwitch     GridSwitchAnalysis `json:"grid_switch"`
	Faults         FaultReport        `json:"faults"`
	LoadManagement LoadManagementPlan `json:"load_management"`
}
