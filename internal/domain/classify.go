package domain

// MetricStatus bands a live metric for display.
type MetricStatus string

const (
	StatusGood     MetricStatus = "good"
	StatusWarning  MetricStatus = "warning"
	StatusCritical MetricStatus = "critical"
)

// Classification cut-points match the backend's alert thresholds.
// Comparisons are strict: a reading exactly on a threshold takes the less
// severe band (temperature 80 is good, 100 is warning).

func ClassifyTemperature(celsius float64) MetricStatus {
	switch {
	case celsius > 100:
		return StatusCritical
	case celsius > 80:
		return StatusWarning
	}
	return StatusGood
}

func ClassifySOC(percent float64) MetricStatus {
	switch {
	case percent < 15:
		return StatusCritical
	case percent < 30:
		return StatusWarning
	}
	return StatusGood
}

func ClassifyVoltage(volts float64) MetricStatus {
	switch {
	case volts < 180:
		return StatusCritical
	case volts < 200:
		return StatusWarning
	}
	return StatusGood
}
