package sim

import (
	"math"
	"math/rand"
	"time"

	"microgrid-console/internal/domain"
)

// Generation scenarios. Stress biases the battery low and makes
// temperature spikes frequent so alert paths get exercised.
const (
	ScenarioNormal = "normal"
	ScenarioStress = "stress"
)

// Generator produces synthetic sensor readings following the daily
// solar pattern.
type Generator struct {
	scenario string
	rng      *rand.Rand
}

func NewGenerator(scenario string) *Generator {
	if scenario == "" {
		scenario = ScenarioNormal
	}
	return &Generator{
		scenario: scenario,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next produces the reading for the given wall-clock moment. Timestamps
// are set; IDs are left for the store to assign.
func (g *Generator) Next(now time.Time) domain.SensorReading {
	hour := now.Hour()

	var generation float64
	if hour >= 6 && hour <= 18 {
		generation = 500 + g.norm(0, 100) + 300*math.Sin(float64(hour-6)*math.Pi/12)
	} else {
		generation = g.norm(10, 5)
	}
	generation = math.Max(0, generation)

	storageMean := 2.5
	if g.scenario == ScenarioStress {
		storageMean = 1.0
	}
	storage := clamp(storageMean+g.norm(0, 1), 0.1, 5.0)
	soc := storage / 5.0 * 100

	spikeChance := 0.1
	if g.scenario == ScenarioStress {
		spikeChance = 0.5
	}
	temperature := 35 + g.norm(0, 10)
	if g.rng.Float64() < spikeChance {
		temperature += g.norm(50, 20)
	}
	temperature = math.Max(0, temperature)

	voltage := 240 - (30-math.Min(30, soc))*2 + g.norm(0, 5)
	voltage = math.Max(160, voltage)

	return domain.SensorReading{
		Timestamp:   domain.NewTime(now),
		Generation:  round1(generation),
		Storage:     round2(storage),
		SOC:         round1(soc),
		Temperature: round1(temperature),
		Voltage:     round1(voltage),
	}
}

func (g *Generator) norm(mean, sigma float64) float64 {
	return mean + g.rng.NormFloat64()*sigma
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
