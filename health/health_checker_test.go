package health

import (
	"net/http"
	"testing"
	"time"

	"github.com/giygas/drugcompat/matrixparser/entities"
)

// MockHealthDataStore for testing
type MockHealthDataStore struct {
	dataset     *entities.Dataset
	diagnostics *entities.Diagnostics
	lastUpdated time.Time
	isUpdating  bool
}

func (m *MockHealthDataStore) GetDataset() *entities.Dataset { return m.dataset }

func (m *MockHealthDataStore) GetDrugs() []entities.DrugRecord {
	if m.dataset == nil {
		return nil
	}
	return m.dataset.Drugs
}

func (m *MockHealthDataStore) GetDrugsMap() map[entities.DrugID]entities.DrugRecord {
	return make(map[entities.DrugID]entities.DrugRecord)
}

func (m *MockHealthDataStore) GetCompatibility() []entities.CompatibilityEntry {
	if m.dataset == nil {
		return nil
	}
	return m.dataset.Compatibility
}

func (m *MockHealthDataStore) GetPairsMap() map[entities.PairKey]entities.CompatibilityEntry {
	return make(map[entities.PairKey]entities.CompatibilityEntry)
}

func (m *MockHealthDataStore) GetDiagnostics() *entities.Diagnostics { return m.diagnostics }
func (m *MockHealthDataStore) GetLastUpdated() time.Time             { return m.lastUpdated }
func (m *MockHealthDataStore) IsUpdating() bool                      { return m.isUpdating }
func (m *MockHealthDataStore) GetServerStartTime() time.Time         { return time.Time{} }

func (m *MockHealthDataStore) UpdateData(*entities.Dataset, *entities.Diagnostics) {
	// Not used in health tests
}

func (m *MockHealthDataStore) BeginUpdate() bool { return true }
func (m *MockHealthDataStore) EndUpdate()        {}

func populated(lastUpdated time.Time) *MockHealthDataStore {
	return &MockHealthDataStore{
		dataset: &entities.Dataset{
			Metadata: entities.Metadata{Version: "2.0.0", GeneratedAt: lastUpdated},
			Drugs:    []entities.DrugRecord{{ID: "heparin"}, {ID: "vancomycin"}},
			Compatibility: []entities.CompatibilityEntry{
				{Drug1: "heparin", Drug2: "vancomycin", Code: entities.CodeIncompatible},
			},
		},
		diagnostics: &entities.Diagnostics{Items: []entities.Diagnostic{{Kind: entities.KindInvalidCode}}},
		lastUpdated: lastUpdated,
	}
}

func TestNewHealthChecker(t *testing.T) {
	healthChecker := NewHealthChecker(&MockHealthDataStore{}, nil)

	if healthChecker == nil {
		t.Fatal("NewHealthChecker returned nil")
	}

	if _, ok := healthChecker.(*HealthCheckerImpl); !ok {
		t.Error("NewHealthChecker should return *HealthCheckerImpl")
	}
}

func TestHealthCheck_Healthy(t *testing.T) {
	healthChecker := NewHealthChecker(populated(time.Now().Add(-1*time.Hour)), nil)
	status, details, httpStatus := healthChecker.HealthCheck()

	if status != "healthy" || httpStatus != http.StatusOK {
		t.Errorf("Expected healthy/200, got %s/%d", status, httpStatus)
	}

	for _, key := range []string{"last_update", "data_age_hours", "next_update", "dataset_version", "generated_at"} {
		if _, ok := details[key]; !ok {
			t.Errorf("Details should contain '%s'", key)
		}
	}
	if details["drugs"] != 2 {
		t.Errorf("Expected 2 drugs, got %v", details["drugs"])
	}
	if details["compatibility_entries"] != 1 {
		t.Errorf("Expected 1 compatibility entry, got %v", details["compatibility_entries"])
	}
	if details["diagnostics"] != 1 {
		t.Errorf("Expected 1 diagnostic, got %v", details["diagnostics"])
	}
	if details["is_updating"] != false {
		t.Errorf("Expected is_updating false, got %v", details["is_updating"])
	}
	if details["dataset_version"] != "2.0.0" {
		t.Errorf("Expected dataset_version 2.0.0, got %v", details["dataset_version"])
	}
}

func TestHealthCheck_Thresholds(t *testing.T) {
	testCases := []struct {
		name       string
		store      *MockHealthDataStore
		status     string
		httpStatus int
	}{
		{"no data", &MockHealthDataStore{lastUpdated: time.Now()}, "unhealthy", http.StatusServiceUnavailable},
		{"no entries", func() *MockHealthDataStore {
			m := populated(time.Now())
			m.dataset.Compatibility = nil
			return m
		}(), "unhealthy", http.StatusServiceUnavailable},
		{"very old data", populated(time.Now().Add(-49 * time.Hour)), "unhealthy", http.StatusServiceUnavailable},
		{"old data", populated(time.Now().Add(-25 * time.Hour)), "degraded", http.StatusServiceUnavailable},
		{"long update", func() *MockHealthDataStore {
			m := populated(time.Now().Add(-7 * time.Hour))
			m.isUpdating = true
			return m
		}(), "degraded", http.StatusServiceUnavailable},
		{"short update", func() *MockHealthDataStore {
			m := populated(time.Now().Add(-1 * time.Hour))
			m.isUpdating = true
			return m
		}(), "healthy", http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, details, httpStatus := NewHealthChecker(tc.store, nil).HealthCheck()
			if status != tc.status {
				t.Errorf("Expected status '%s', got '%s'", tc.status, status)
			}
			if httpStatus != tc.httpStatus {
				t.Errorf("Expected HTTP %d, got %d", tc.httpStatus, httpStatus)
			}
			if details == nil {
				t.Error("Details should not be nil")
			}
		})
	}
}

func TestHealthCheck_DataAge(t *testing.T) {
	now := time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)
	checker := NewHealthChecker(populated(now.Add(-90*time.Minute)), nil).(*HealthCheckerImpl)
	checker.now = func() time.Time { return now }

	_, details, _ := checker.HealthCheck()

	if age := details["data_age_hours"].(float64); age != 1.5 {
		t.Errorf("Expected data age 1.5 hours, got %v", age)
	}
	if next := details["next_update"]; next != "2025-12-01T18:00:00Z" {
		t.Errorf("Expected next update at 18:00, got %v", next)
	}
}

func TestCalculateNextUpdate(t *testing.T) {
	loc := time.FixedZone("CET", 3600)

	testCases := []struct {
		name     string
		schedule []string
		now      time.Time
		expected time.Time
	}{
		{"before first", nil, time.Date(2025, 3, 10, 5, 0, 0, 0, loc), time.Date(2025, 3, 10, 6, 0, 0, 0, loc)},
		{"between", nil, time.Date(2025, 3, 10, 12, 0, 0, 0, loc), time.Date(2025, 3, 10, 18, 0, 0, 0, loc)},
		{"exactly on time", nil, time.Date(2025, 3, 10, 18, 0, 0, 0, loc), time.Date(2025, 3, 11, 6, 0, 0, 0, loc)},
		{"after last", nil, time.Date(2025, 12, 31, 20, 0, 0, 0, loc), time.Date(2026, 1, 1, 6, 0, 0, 0, loc)},
		{"custom unsorted", []string{"23:30", "07:15"}, time.Date(2025, 3, 10, 8, 0, 0, 0, loc), time.Date(2025, 3, 10, 23, 30, 0, 0, loc)},
		{"invalid entries skipped", []string{"25:00", "09:00"}, time.Date(2025, 3, 10, 10, 0, 0, 0, loc), time.Date(2025, 3, 11, 9, 0, 0, 0, loc)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			checker := NewHealthChecker(&MockHealthDataStore{}, tc.schedule).(*HealthCheckerImpl)
			checker.now = func() time.Time { return tc.now }

			if got := checker.CalculateNextUpdate(); !got.Equal(tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestCalculateNextUpdate_NoValidSchedule(t *testing.T) {
	checker := NewHealthChecker(&MockHealthDataStore{}, []string{"nope"})

	if got := checker.CalculateNextUpdate(); !got.IsZero() {
		t.Errorf("Expected zero time without a schedule, got %v", got)
	}
}

func BenchmarkHealthCheck(b *testing.B) {
	healthChecker := NewHealthChecker(populated(time.Now()), nil)

	for b.Loop() {
		healthChecker.HealthCheck()
	}
}
