package requests

import (
	"time"

	"sentinel-desk/core/store"
)

type Statistics struct {
	Total              int            `json:"total"`
	ByStatus           map[string]int `json:"byStatus"`
	ByType             map[string]int `json:"byType"`
	ByPriority         map[string]int `json:"byPriority"`
	Today              int            `json:"today"`
	Last7Days          int            `json:"last7Days"`
	Last30Days         int            `json:"last30Days"`
	AvgResolutionHours *float64       `json:"avgResolutionHours"`
}

// BuildStatistics computes the rollup over the full request set. It is
// a pure function of the rows and the clock, so repeated calls against
// an unchanged set return identical counts. Zero rows yield zeroed
// counts and a nil average, never a division by zero.
func BuildStatistics(rows []store.StatRow, now time.Time) *Statistics {
	stats := &Statistics{
		ByStatus:   map[string]int{},
		ByType:     map[string]int{},
		ByPriority: map[string]int{},
	}
	for _, status := range KnownStatuses() {
		stats.ByStatus[status] = 0
	}
	for _, priority := range []string{"low", "medium", "high", "critical"} {
		stats.ByPriority[priority] = 0
	}
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := now.Add(-7 * 24 * time.Hour)
	monthAgo := now.Add(-30 * 24 * time.Hour)
	var resolvedHours float64
	var resolvedCount int
	for _, row := range rows {
		stats.Total++
		stats.ByStatus[row.Status]++
		stats.ByType[row.RequestType]++
		stats.ByPriority[row.Priority]++
		created := row.CreatedAt.UTC()
		if !created.Before(midnight) {
			stats.Today++
		}
		if !created.Before(weekAgo) {
			stats.Last7Days++
		}
		if !created.Before(monthAgo) {
			stats.Last30Days++
		}
		if IsTerminalStatus(row.Status) {
			end := row.UpdatedAt
			if row.CompletedAt != nil {
				end = *row.CompletedAt
			}
			resolvedHours += end.UTC().Sub(created).Hours()
			resolvedCount++
		}
	}
	if resolvedCount > 0 {
		avg := resolvedHours / float64(resolvedCount)
		stats.AvgResolutionHours = &avg
	}
	return stats
}
