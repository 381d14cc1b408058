// Package health provides health checking functionality for the compatibility API.
package health

import (
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/giygas/drugcompat/interfaces"
	"github.com/giygas/drugcompat/logging"
)

// DefaultRefreshTimes are used when no schedule is configured.
var DefaultRefreshTimes = []string{"06:00", "18:00"}

type clockTime struct {
	hour, minute int
}

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore interfaces.DataStore
	schedule  []clockTime
	now       func() time.Time
}

// NewHealthChecker creates a new health checker with injected dependencies.
// refreshTimes are "HH:MM" entries; invalid ones are ignored.
func NewHealthChecker(dataStore interfaces.DataStore, refreshTimes []string) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		dataStore: dataStore,
		schedule:  parseSchedule(refreshTimes),
		now:       time.Now,
	}
}

func parseSchedule(refreshTimes []string) []clockTime {
	var schedule []clockTime
	for _, raw := range refreshTimes {
		t, err := time.Parse("15:04", raw)
		if err != nil {
			logging.Warn("Ignoring invalid refresh time", "value", raw, "error", err)
			continue
		}
		schedule = append(schedule, clockTime{hour: t.Hour(), minute: t.Minute()})
	}
	if len(schedule) == 0 && len(refreshTimes) == 0 {
		return parseSchedule(DefaultRefreshTimes)
	}
	sort.Slice(schedule, func(i, j int) bool {
		if schedule[i].hour != schedule[j].hour {
			return schedule[i].hour < schedule[j].hour
		}
		return schedule[i].minute < schedule[j].minute
	})
	return schedule
}

// HealthCheck returns HTTP-specific health data with stricter thresholds
// Used by /health HTTP endpoint
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	dataset := h.dataStore.GetDataset()
	drugs := h.dataStore.GetDrugs()
	entries := h.dataStore.GetCompatibility()
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()

	dataAge := h.now().Sub(lastUpdate)

	switch {
	case len(drugs) == 0 || len(entries) == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > 48*time.Hour:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > 24*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case isUpdating && dataAge > 6*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"last_update":           lastUpdate.Format(time.RFC3339),
		"data_age_hours":        math.Round(dataAge.Hours()*10) / 10,
		"drugs":                 len(drugs),
		"compatibility_entries": len(entries),
		"diagnostics":           h.dataStore.GetDiagnostics().Len(),
		"is_updating":           isUpdating,
		"next_update":           h.CalculateNextUpdate().Format(time.RFC3339),
	}
	if dataset != nil {
		data["dataset_version"] = dataset.Metadata.Version
		data["generated_at"] = dataset.Metadata.GeneratedAt.Format(time.RFC3339)
	}

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled update time
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	return nextUpdateAfter(h.now(), h.schedule)
}

func nextUpdateAfter(now time.Time, schedule []clockTime) time.Time {
	if len(schedule) == 0 {
		return time.Time{}
	}
	for _, ct := range schedule {
		candidate := time.Date(now.Year(), now.Month(), now.Day(), ct.hour, ct.minute, 0, 0, now.Location())
		if now.Before(candidate) {
			return candidate
		}
	}
	first := schedule[0]
	return time.Date(now.Year(), now.Month(), now.Day()+1, first.hour, first.minute, 0, 0, now.Location())
}
