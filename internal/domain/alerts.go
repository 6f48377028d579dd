package domain

import (
	"sort"
	"strings"
)

type AlertFilter struct {
	ActiveOnly bool
	Severity   Severity // empty matches all
	Search     string   // case-insensitive match on message and type
}

// FilterAlerts returns the alerts matching f, leaving the input untouched.
func FilterAlerts(alerts []Alert, f AlertFilter) []Alert {
	out := make([]Alert, 0, len(alerts))
	needle := strings.ToLower(f.Search)
	for _, a := range alerts {
		if f.ActiveOnly && a.Resolved.Bool() {
			continue
		}
		if f.Severity != "" && a.Severity != f.Severity {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(a.Message), needle) &&
			!strings.Contains(strings.ToLower(a.AlertType), needle) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// SortAlertsByTime returns a copy ordered newest first. Equal timestamps
// keep their relative order.
func SortAlertsByTime(alerts []Alert) []Alert {
	out := make([]Alert, len(alerts))
	copy(out, alerts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp.Time)
	})
	return out
}

type AlertCounts struct {
	Active          int              `json:"active"`
	Critical        int              `json:"critical"`
	HighestSeverity Severity         `json:"highest_severity,omitempty"`
	BySeverity      map[Severity]int `json:"by_severity"`
}

// SummarizeAlerts tallies the unresolved alerts.
func SummarizeAlerts(alerts []Alert) AlertCounts {
	counts := AlertCounts{BySeverity: map[Severity]int{}}
	for _, a := range alerts {
		if a.Resolved.Bool() {
			continue
		}
		counts.Active++
		counts.BySeverity[a.Severity]++
		if a.Severity == SeverityCritical {
			counts.Critical++
		}
		if a.Severity.Rank() > counts.HighestSeverity.Rank() {
			counts.HighestSeverity = a.Severity
		}
	}
	return counts
}
