package view

import "microgrid-console/internal/domain"

type ID string

const (
	Overview  ID = "overview"
	Alerts    ID = "alerts"
	Analytics ID = "analytics"
	Forecasts ID = "forecasts"
	Insights  ID = "insights"
	Settings  ID = "settings"
)

// navTable maps each view to the minimum role allowed to see it.
// Declaration order is presentation order.
var navTable = []struct {
	id  ID
	min domain.Role
}{
	{Overview, domain.RoleOperator},
	{Alerts, domain.RoleOperator},
	{Analytics, domain.RoleOperator},
	{Forecasts, domain.RoleOperator},
	{Insights, domain.RoleOperator},
	{Settings, domain.RoleAdmin},
}

// VisibleViews filters the table by role. Views the role cannot access
// are absent from the result, not flagged.
func VisibleViews(role domain.Role) []ID {
	out := make([]ID, 0, len(navTable))
	for _, entry := range navTable {
		if role.AtLeast(entry.min) {
			out = append(out, entry.id)
		}
	}
	return out
}

// Visible reports whether a single view is accessible to the role.
func Visible(id ID, role domain.Role) bool {
	for _, entry := range navTable {
		if entry.id == id {
			return role.AtLeast(entry.min)
		}
	}
	return false
}
