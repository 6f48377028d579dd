package domain

import "strings"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

func ParseSeverity(s string) Severity {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if sev.Rank() == 0 {
		return SeverityLow
	}
	return sev
}

// Health is the backend's overall system condition. The wire carries a
// fourth value, caution, between healthy and warning; anything
// unrecognized degrades to warning rather than failing the decode.
type Health string

const (
	HealthHealthy  Health = "healthy"
	HealthCaution  Health = "caution"
	HealthWarning  Health = "warning"
	HealthCritical Health = "critical"
)

func (h *Health) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	switch Health(strings.ToLower(s)) {
	case HealthHealthy:
		*h = HealthHealthy
	case HealthCaution:
		*h = HealthCaution
	case HealthWarning:
		*h = HealthWarning
	case HealthCritical:
		*h = HealthCritical
	default:
		*h = HealthWarning
	}
	return nil
}
