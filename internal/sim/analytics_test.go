package sim

import (
	"math"
	"strings"
	"testing"
	"time"

	"microgrid-console/internal/domain"
)

func almostEq(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func readingSet(socs []float64, temp, volt, gen float64, base time.Time) []domain.SensorReading {
	out := make([]domain.SensorReading, len(socs))
	for i, soc := range socs {
		out[i] = domain.SensorReading{
			Timestamp:   domain.NewTime(base.Add(time.Duration(i) * time.Hour)),
			SOC:         soc,
			Temperature: temp,
			Voltage:     volt,
			Generation:  gen,
		}
	}
	return out
}

func TestComputeStatistics(t *testing.T) {
	readings := []domain.SensorReading{
		{Generation: 400, Storage: 2, SOC: 40, Temperature: 50, Voltage: 230},
		{Generation: 600, Storage: 3, SOC: 60, Temperature: 70, Voltage: 250},
	}
	stats := ComputeStatistics(readings)
	if stats == nil {
		t.Fatal("stats = nil with data present")
	}
	if !almostEq(stats.AvgGeneration, 500) || !almostEq(stats.AvgSOC, 50) || !almostEq(stats.AvgVoltage, 240) {
		t.Errorf("averages wrong: %+v", stats)
	}
	if stats.MaxTemperature != 70 || stats.MinSOC != 40 || stats.MinVoltage != 230 {
		t.Errorf("extremes wrong: %+v", stats)
	}
	if stats.DataPoints != 2 {
		t.Errorf("data points = %d", stats.DataPoints)
	}
	// (50 + (240-0)/2.4) / 2 = 75
	if !almostEq(stats.EfficiencyScore, 75) {
		t.Errorf("efficiency = %v, want 75", stats.EfficiencyScore)
	}
	if stats.GenerationTrend != "increasing" {
		t.Errorf("trend = %q", stats.GenerationTrend)
	}
	if !almostEq(stats.Predictions.NextHourGeneration, 550) {
		t.Errorf("next hour = %v, want 550", stats.Predictions.NextHourGeneration)
	}
	if !almostEq(stats.Predictions.StorageDepletionHours, 6.25) {
		t.Errorf("depletion hours = %v, want 6.25", stats.Predictions.StorageDepletionHours)
	}
	if stats.Predictions.MaintenanceRecommendation != "System operating normally" {
		t.Errorf("maintenance = %q", stats.Predictions.MaintenanceRecommendation)
	}
}

func TestComputeStatisticsEdges(t *testing.T) {
	if ComputeStatistics(nil) != nil {
		t.Error("no data should yield nil")
	}

	hot := ComputeStatistics([]domain.SensorReading{
		{Generation: 50, Storage: 0, SOC: 20, Temperature: 95, Voltage: 240},
	})
	if hot.Predictions.MaintenanceRecommendation != "Schedule maintenance" {
		t.Errorf("maintenance = %q", hot.Predictions.MaintenanceRecommendation)
	}
	if hot.GenerationTrend != "decreasing" {
		t.Errorf("trend = %q", hot.GenerationTrend)
	}
	if hot.Predictions.NextHourGeneration != 0 {
		t.Error("low generation should not predict next hour output")
	}
	if hot.Predictions.StorageDepletionHours != 0 {
		t.Error("empty storage should not predict depletion hours")
	}
}

func TestRollupHealth(t *testing.T) {
	mk := func(sevs ...domain.Severity) []domain.Alert {
		out := make([]domain.Alert, len(sevs))
		for i, s := range sevs {
			out[i] = domain.Alert{Severity: s}
		}
		return out
	}
	tests := []struct {
		name   string
		alerts []domain.Alert
		want   domain.Health
	}{
		{"no alerts", nil, domain.HealthHealthy},
		{"low only", mk(domain.SeverityLow), domain.HealthCaution},
		{"medium only", mk(domain.SeverityMedium), domain.HealthCaution},
		{"high present", mk(domain.SeverityLow, domain.SeverityHigh), domain.HealthWarning},
		{"critical wins", mk(domain.SeverityHigh, domain.SeverityCritical), domain.HealthCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RollupHealth(tt.alerts); got != tt.want {
				t.Errorf("RollupHealth = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEfficiencyTargets(t *testing.T) {
	got := efficiencyTargets(20)
	if !got.Target15Met || got.Target15Status != "Met" || got.Target15Gap != 0 {
		t.Errorf("15%% target: %+v", got)
	}
	if got.Target30Met || got.Target30Status != "Not Met" || !almostEq(got.Target30Gap, 10) {
		t.Errorf("30%% target: %+v", got)
	}
}

func TestBatteryDepletionDefaultRate(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	history := readingSet([]float64{50}, 40, 240, 500, now.Add(-time.Hour))

	f := BatteryDepletion(history, "current", now)
	if f == nil {
		t.Fatal("forecast = nil")
	}
	if f.DepletionRate != 2.0 {
		t.Errorf("rate = %v, want default 2.0 with sparse history", f.DepletionRate)
	}
	if f.BackupHours != 25 || f.CriticalLoadBackupHours != 50 {
		t.Errorf("backup = %v/%v, want 25/50", f.BackupHours, f.CriticalLoadBackupHours)
	}
	if f.Confidence != 75 {
		t.Errorf("confidence = %v, want 75", f.Confidence)
	}
	if f.CurrentSOC != 50 || f.LoadScenario != "current" {
		t.Errorf("forecast fields: %+v", f)
	}

	if BatteryDepletion(nil, "current", now) != nil {
		t.Error("no history should yield nil forecast")
	}
}

func TestBatteryDepletionFromTrend(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	history := readingSet([]float64{60, 58, 56, 54, 52, 50}, 40, 240, 500, now.Add(-6*time.Hour))

	f := BatteryDepletion(history, "current", now)
	if f == nil {
		t.Fatal("forecast = nil")
	}
	// soc dropped 10 over 6 points: rate 1.67, backup 50/1.667 = 30h
	if f.DepletionRate != 1.67 {
		t.Errorf("rate = %v, want 1.67", f.DepletionRate)
	}
	if f.BackupHours != 30 {
		t.Errorf("backup = %v, want 30", f.BackupHours)
	}
	if f.Confidence != 85 {
		t.Errorf("confidence = %v, want 85", f.Confidence)
	}

	high := BatteryDepletion(history, "high", now)
	if high.BackupHours >= f.BackupHours {
		t.Errorf("high scenario should deplete faster: %v vs %v", high.BackupHours, f.BackupHours)
	}
}

func TestSolarFactor(t *testing.T) {
	tests := []struct {
		hour int
		want float64
	}{
		{12, 1}, {9, 0.75}, {15, 0.75}, {6, 0}, {18, 0}, {3, 0}, {22, 0},
	}
	for _, tt := range tests {
		if got := solarFactor(tt.hour); !almostEq(got, tt.want) {
			t.Errorf("solarFactor(%d) = %v, want %v", tt.hour, got, tt.want)
		}
	}
}

func TestSolarForecastAt(t *testing.T) {
	morning := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	f := SolarForecastAt(morning, 6)
	if f.ForecastHorizon != 6 {
		t.Errorf("horizon = %d", f.ForecastHorizon)
	}
	if !almostEq(f.PredictedPower, 1000) {
		t.Errorf("noon power = %v, want 1000", f.PredictedPower)
	}
	if f.Confidence != 85 {
		t.Errorf("daylight confidence = %v", f.Confidence)
	}

	night := SolarForecastAt(time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC), 6)
	if night.PredictedPower != 0 || night.Confidence != 60 {
		t.Errorf("midnight forecast: %+v", night)
	}
}

func TestPredictSolar(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	empty := PredictSolar(now, 24, false)
	if empty.Method != "no_data" || len(empty.Predictions) != 0 {
		t.Fatalf("no history: %+v", empty)
	}

	set := PredictSolar(now, 24, true)
	if len(set.Predictions) != 24 || set.Method != "time_series_analysis" {
		t.Fatalf("set shape: method=%q n=%d", set.Method, len(set.Predictions))
	}
	if !almostEq(set.AverageConfidence, 0.75) {
		t.Errorf("average confidence = %v", set.AverageConfidence)
	}

	midnight, noon := set.Predictions[0], set.Predictions[12]
	if midnight.PredictedGeneration != 0 || midnight.Confidence != 0.6 {
		t.Errorf("midnight prediction: %+v", midnight)
	}
	if noon.PredictedGeneration < 700 || noon.PredictedGeneration > 1000 {
		t.Errorf("noon prediction %v outside weather-adjusted range", noon.PredictedGeneration)
	}
	if noon.Confidence != 0.85 {
		t.Errorf("noon confidence = %v", noon.Confidence)
	}
}

func TestPredictLoad(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	set := PredictLoad(now, 24)
	if len(set.Predictions) != 24 || set.Method != "pattern_analysis" {
		t.Fatalf("set shape: method=%q n=%d", set.Method, len(set.Predictions))
	}
	if len(set.PeakHours) != 4 || set.PeakHours[0] != "18:00" {
		t.Errorf("peak hours = %v", set.PeakHours)
	}

	types := map[int]string{0: "base_load", 7: "morning_peak", 12: "daytime", 19: "evening_peak"}
	for i, want := range types {
		if got := set.Predictions[i].LoadType; got != want {
			t.Errorf("hour %d load type = %q, want %q", i, got, want)
		}
	}
	for _, p := range set.Predictions {
		if p.PredictedLoad < 100 {
			t.Errorf("load %v below 100W floor", p.PredictedLoad)
		}
	}
}

func TestAnalyzeGridSwitch(t *testing.T) {
	noon := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	solar := func(per float64) domain.SolarPredictionSet {
		s := domain.SolarPredictionSet{}
		for i := 0; i < 6; i++ {
			s.Predictions = append(s.Predictions, domain.SolarPrediction{PredictedGeneration: per})
		}
		return s
	}
	load := func(per float64) domain.LoadPredictionSet {
		l := domain.LoadPredictionSet{}
		for i := 0; i < 6; i++ {
			l.Predictions = append(l.Predictions, domain.LoadPrediction{PredictedLoad: per})
		}
		return l
	}

	critical := AnalyzeGridSwitch(domain.SensorReading{SOC: 10, Generation: 700}, solar(100), load(100), noon)
	if !critical.SwitchToGrid {
		t.Fatal("10% SOC must force a switch")
	}
	if len(critical.Reasons) == 0 || critical.Reasons[0] != "Critical battery level: 10%" {
		t.Errorf("reasons = %v", critical.Reasons)
	}
	if !strings.HasPrefix(critical.Recommendation, "IMMEDIATE") {
		t.Errorf("recommendation = %q", critical.Recommendation)
	}

	healthy := AnalyzeGridSwitch(domain.SensorReading{SOC: 80, Generation: 700}, solar(200), load(100), noon)
	if healthy.SwitchToGrid {
		t.Fatalf("healthy system switched: %+v", healthy)
	}
	if healthy.Recommendation != "CONTINUE: Microgrid operation is optimal" {
		t.Errorf("recommendation = %q", healthy.Recommendation)
	}
	if healthy.PredictedDeficit6H != 0 {
		t.Errorf("deficit = %v, want 0 with surplus", healthy.PredictedDeficit6H)
	}

	night := time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)
	late := AnalyzeGridSwitch(domain.SensorReading{SOC: 35, Generation: 100}, solar(200), load(100), night)
	found := false
	for _, r := range late.Reasons {
		if r == "Night time operation with low battery" {
			found = true
		}
	}
	if !found {
		t.Errorf("night rule missing: %v", late.Reasons)
	}
	if !strings.HasPrefix(late.Recommendation, "RECOMMENDED") {
		t.Errorf("recommendation = %q", late.Recommendation)
	}

	deficit := AnalyzeGridSwitch(domain.SensorReading{SOC: 45, Generation: 700}, solar(40), load(100), noon)
	if deficit.SwitchToGrid != true {
		t.Fatal("predicted deficit with low battery should switch")
	}
	if !almostEq(deficit.PredictedDeficit6H, 360) {
		t.Errorf("deficit = %v, want 360", deficit.PredictedDeficit6H)
	}
}

func TestDetectFaults(t *testing.T) {
	morning := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	noon := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	sparse := DetectFaults(readingSet([]float64{50, 50, 50}, 40, 240, 500, morning), morning)
	if sparse.SystemHealth != "unknown" || len(sparse.Faults) != 0 {
		t.Fatalf("sparse data: %+v", sparse)
	}
	if sparse.DataPointsAnalyzed != 3 {
		t.Errorf("data points = %d", sparse.DataPointsAnalyzed)
	}

	clean := DetectFaults(readingSet([]float64{50, 50, 50, 50, 50}, 40, 240, 500, morning), morning)
	if clean.SystemHealth != "excellent" || len(clean.Faults) != 0 {
		t.Fatalf("clean data: health=%q faults=%+v", clean.SystemHealth, clean.Faults)
	}

	flaky := DetectFaults(readingSet([]float64{10, 40, 80, 30, 60}, 40, 240, 500, morning), morning)
	if len(flaky.Faults) != 1 || flaky.Faults[0].Type != "battery_degradation" {
		t.Fatalf("soc variance: %+v", flaky.Faults)
	}
	if flaky.SystemHealth != "critical" {
		t.Errorf("high severity fault should mark critical, got %q", flaky.SystemHealth)
	}

	unstable := readingSet([]float64{50, 50, 50, 50, 50}, 40, 240, 500, morning)
	for i := range unstable {
		if i%2 == 1 {
			unstable[i].Voltage = 220
		}
	}
	volts := DetectFaults(unstable, morning)
	if len(volts.Faults) != 1 || volts.Faults[0].Type != "voltage_instability" {
		t.Fatalf("voltage swings: %+v", volts.Faults)
	}

	weak := DetectFaults(readingSet([]float64{50, 50, 50, 50, 50}, 40, 200, 100, morning), noon)
	types := map[string]bool{}
	for _, f := range weak.Faults {
		types[f.Type] = true
	}
	if !types["inverter_efficiency"] || !types["solar_degradation"] {
		t.Fatalf("midday low output: %+v", weak.Faults)
	}
	if weak.SystemHealth != "degraded" {
		t.Errorf("two medium faults should mark degraded, got %q", weak.SystemHealth)
	}
}

func TestPlanLoadManagement(t *testing.T) {
	morning := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	noon := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

	shedding := PlanLoadManagement(domain.SensorReading{SOC: 10, Generation: 0}, morning)
	if len(shedding.Strategies) != 1 {
		t.Fatalf("strategies: %+v", shedding.Strategies)
	}
	s := shedding.Strategies[0]
	if s.Action != "load_shedding" || s.Priority != "critical" || len(s.LoadsToShed) != 3 {
		t.Errorf("shedding strategy: %+v", s)
	}
	if !shedding.NextReview.Equal(morning.Add(30 * time.Minute)) {
		t.Errorf("next review = %v", shedding.NextReview)
	}
	if shedding.CurrentStatus.Hour != 8 {
		t.Errorf("status hour = %d", shedding.CurrentStatus.Hour)
	}

	reduction := PlanLoadManagement(domain.SensorReading{SOC: 30, Generation: 100}, morning)
	if len(reduction.Strategies) != 1 || reduction.Strategies[0].Action != "load_reduction" {
		t.Fatalf("reduction strategies: %+v", reduction.Strategies)
	}

	sunny := PlanLoadManagement(domain.SensorReading{SOC: 50, Generation: 700}, noon)
	actions := map[string]bool{}
	for _, st := range sunny.Strategies {
		actions[st.Action] = true
	}
	if !actions["load_shifting"] || !actions["battery_charging"] {
		t.Fatalf("sunny midday: %+v", sunny.Strategies)
	}

	export := PlanLoadManagement(domain.SensorReading{SOC: 95, Generation: 900}, evening)
	if len(export.Strategies) != 1 || export.Strategies[0].Action != "grid_export" {
		t.Fatalf("export strategies: %+v", export.Strategies)
	}
	if export.Strategies[0].ExcessPower != "500W" {
		t.Errorf("excess power = %q", export.Strategies[0].ExcessPower)
	}

	idle := PlanLoadManagement(domain.SensorReading{SOC: 60, Generation: 100}, evening)
	if len(idle.Strategies) != 0 {
		t.Errorf("nominal evening should need no strategies: %+v", idle.Strategies)
	}
}
