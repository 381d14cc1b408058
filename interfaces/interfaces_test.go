package interfaces

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/giygas/drugcompat/matrixparser/entities"
)

// MockDataStore implements DataStore interface for testing
type MockDataStore struct {
	dataset     *entities.Dataset
	diagnostics *entities.Diagnostics
	lastUpdated time.Time
	updating    bool
}

func (m *MockDataStore) GetDataset() *entities.Dataset { return m.dataset }

func (m *MockDataStore) GetDrugs() []entities.DrugRecord {
	if m.dataset == nil {
		return nil
	}
	return m.dataset.Drugs
}

func (m *MockDataStore) GetDrugsMap() map[entities.DrugID]entities.DrugRecord {
	out := make(map[entities.DrugID]entities.DrugRecord)
	for _, d := range m.GetDrugs() {
		out[d.ID] = d
	}
	return out
}

func (m *MockDataStore) GetCompatibility() []entities.CompatibilityEntry {
	if m.dataset == nil {
		return nil
	}
	return m.dataset.Compatibility
}

func (m *MockDataStore) GetPairsMap() map[entities.PairKey]entities.CompatibilityEntry {
	out := make(map[entities.PairKey]entities.CompatibilityEntry)
	for _, e := range m.GetCompatibility() {
		out[e.Pair()] = e
	}
	return out
}

func (m *MockDataStore) GetDiagnostics() *entities.Diagnostics { return m.diagnostics }
func (m *MockDataStore) GetLastUpdated() time.Time            { return m.lastUpdated }
func (m *MockDataStore) IsUpdating() bool                     { return m.updating }
func (m *MockDataStore) GetServerStartTime() time.Time        { return time.Time{} }

func (m *MockDataStore) UpdateData(dataset *entities.Dataset, diagnostics *entities.Diagnostics) {
	m.dataset = dataset
	m.diagnostics = diagnostics
	m.lastUpdated = time.Now()
}

func (m *MockDataStore) BeginUpdate() bool {
	if m.updating {
		return false
	}
	m.updating = true
	return true
}

func (m *MockDataStore) EndUpdate() { m.updating = false }

// MockParser implements Parser interface for testing
type MockParser struct {
	shouldFail bool
}

func (m *MockParser) ParseDataset() (*entities.Dataset, *entities.Diagnostics, error) {
	if m.shouldFail {
		return nil, nil, errors.New("parse failed")
	}
	return &entities.Dataset{
		Drugs: []entities.DrugRecord{
			{ID: "heparin", DisplayName: entities.Wrap("Eparina", "Heparin")},
			{ID: "propofol", DisplayName: entities.Wrap("Propofol")},
		},
		Compatibility: []entities.CompatibilityEntry{
			{Drug1: "heparin", Drug2: "propofol", Code: entities.CodeCaution},
		},
	}, &entities.Diagnostics{}, nil
}

// MockScheduler implements Scheduler interface for testing
type MockScheduler struct {
	started bool
	stopped bool
}

func (m *MockScheduler) Start() error {
	if m.started {
		return errors.New("already started")
	}
	m.started = true
	return nil
}

func (m *MockScheduler) Stop() { m.stopped = true }

// MockHTTPHandler implements HTTPHandler interface for testing
type MockHTTPHandler struct {
	calls []string
}

func (m *MockHTTPHandler) record(name string, w http.ResponseWriter) {
	m.calls = append(m.calls, name)
	w.WriteHeader(http.StatusOK)
}

func (m *MockHTTPHandler) ListDrugs(w http.ResponseWriter, r *http.Request) { m.record("ListDrugs", w) }
func (m *MockHTTPHandler) GetDrug(w http.ResponseWriter, r *http.Request)   { m.record("GetDrug", w) }
func (m *MockHTTPHandler) ListCompatibility(w http.ResponseWriter, r *http.Request) {
	m.record("ListCompatibility", w)
}
func (m *MockHTTPHandler) GetPairCompatibility(w http.ResponseWriter, r *http.Request) {
	m.record("GetPairCompatibility", w)
}
func (m *MockHTTPHandler) AnalyzeCombination(w http.ResponseWriter, r *http.Request) {
	m.record("AnalyzeCombination", w)
}
func (m *MockHTTPHandler) ServeDiagnostics(w http.ResponseWriter, r *http.Request) {
	m.record("ServeDiagnostics", w)
}
func (m *MockHTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	m.record("HealthCheck", w)
}

// MockHealthChecker implements HealthChecker interface for testing
type MockHealthChecker struct {
	next time.Time
}

func (m *MockHealthChecker) HealthCheck() (string, map[string]any, int) {
	return "healthy", map[string]any{"drugs": 2}, http.StatusOK
}

func (m *MockHealthChecker) CalculateNextUpdate() time.Time { return m.next }

// Compile-time checks
var (
	_ DataStore     = (*MockDataStore)(nil)
	_ Parser        = (*MockParser)(nil)
	_ Scheduler     = (*MockScheduler)(nil)
	_ HTTPHandler   = (*MockHTTPHandler)(nil)
	_ HealthChecker = (*MockHealthChecker)(nil)
)

func TestDataStoreWithParser(t *testing.T) {
	var store DataStore = &MockDataStore{}
	var parser Parser = &MockParser{}

	if !store.BeginUpdate() {
		t.Fatal("First BeginUpdate should succeed")
	}
	if store.BeginUpdate() {
		t.Error("Second BeginUpdate should fail while updating")
	}

	dataset, diags, err := parser.ParseDataset()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	store.UpdateData(dataset, diags)
	store.EndUpdate()

	if store.IsUpdating() {
		t.Error("Store should not be updating after EndUpdate")
	}
	if len(store.GetDrugs()) != 2 {
		t.Errorf("Expected 2 drugs, got %d", len(store.GetDrugs()))
	}
	if _, ok := store.GetDrugsMap()["heparin"]; !ok {
		t.Error("Expected heparin in drugs map")
	}
	if _, ok := store.GetPairsMap()[entities.NewPairKey("propofol", "heparin")]; !ok {
		t.Error("Expected pair lookup in either order")
	}
	if store.GetLastUpdated().IsZero() {
		t.Error("Last update should be set")
	}
}

func TestParserFailure(t *testing.T) {
	var parser Parser = &MockParser{shouldFail: true}

	dataset, _, err := parser.ParseDataset()
	if err == nil || dataset != nil {
		t.Errorf("Expected error and nil dataset, got %v, %v", dataset, err)
	}
}

func TestSchedulerLifecycle(t *testing.T) {
	mock := &MockScheduler{}
	var s Scheduler = mock

	if err := s.Start(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Error("Expected error on second start")
	}
	s.Stop()
	if !mock.stopped {
		t.Error("Scheduler should be stopped")
	}
}

func TestHTTPHandlerMethods(t *testing.T) {
	mock := &MockHTTPHandler{}
	var h HTTPHandler = mock

	methods := []http.HandlerFunc{
		h.ListDrugs, h.GetDrug, h.ListCompatibility, h.GetPairCompatibility,
		h.AnalyzeCombination, h.ServeDiagnostics, h.HealthCheck,
	}
	for _, m := range methods {
		rr := httptest.NewRecorder()
		m(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		if rr.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", rr.Code)
		}
	}
	if len(mock.calls) != len(methods) {
		t.Errorf("Expected %d calls, got %d", len(methods), len(mock.calls))
	}
}

func TestHealthChecker(t *testing.T) {
	next := time.Date(2025, 12, 1, 18, 0, 0, 0, time.UTC)
	var hc HealthChecker = &MockHealthChecker{next: next}

	status, details, code := hc.HealthCheck()
	if status != "healthy" || code != http.StatusOK || details["drugs"] != 2 {
		t.Errorf("Unexpected health %s %d %v", status, code, details)
	}
	if !hc.CalculateNextUpdate().Equal(next) {
		t.Errorf("Expected %v, got %v", next, hc.CalculateNextUpdate())
	}
}
