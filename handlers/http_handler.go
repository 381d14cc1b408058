// Package handlers provides HTTP request handlers for the compatibility API endpoints.
// This file implements the HTTPHandler interface with dependency injection.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/giygas/drugcompat/interfaces"
	"github.com/giygas/drugcompat/logging"
	"github.com/giygas/drugcompat/matrixparser/entities"
	"github.com/go-chi/chi/v5"
)

const (
	// MaxAnalysisDrugs bounds the pairs computed per analysis request
	MaxAnalysisDrugs = 20
	minAnalysisDrugs = 2
)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	dataStore     interfaces.DataStore
	validator     interfaces.DataValidator
	healthChecker interfaces.HealthChecker
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(dataStore interfaces.DataStore, validator interfaces.DataValidator, healthChecker interfaces.HealthChecker) interfaces.HTTPHandler {
	return &HTTPHandlerImpl{
		dataStore:     dataStore,
		validator:     validator,
		healthChecker: healthChecker,
	}
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status        string         `json:"status"`
	Uptime        string         `json:"uptime"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Data          map[string]any `json:"data"`
	System        map[string]any `json:"system"`
}

// ListResponse wraps list endpoints
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// PairResponse is the answer for a single pair lookup
type PairResponse struct {
	entities.CompatibilityEntry
	Severity        int  `json:"severity"`
	RequiresWarning bool `json:"requiresWarning"`
	IsCritical      bool `json:"isCritical"`
	Found           bool `json:"found"`
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if lastUpdated := h.dataStore.GetLastUpdated(); !lastUpdated.IsZero() {
		w.Header().Set("Last-Modified", lastUpdated.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(code)
	w.Write(data)
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	h.RespondWithJSON(w, code, errorResponse)
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}

// parseBoolFilter reads an optional boolean query parameter
func parseBoolFilter(r *http.Request, name string) (value bool, set bool, err error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, false, nil
	}
	value, err = strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("invalid value for %s: must be true or false", name)
	}
	return value, true, nil
}

// ListDrugs returns drugs, optionally filtered by search term, flags and category
func (h *HTTPHandlerImpl) ListDrugs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	search := query.Get("q")
	if search != "" {
		if err := h.validator.ValidateInput(search); err != nil {
			logging.Warn("Unusual user input", "q", search)
			h.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	lowerSearch := strings.ToLower(strings.TrimSpace(search))
	idSearch := strings.Join(strings.Fields(lowerSearch), "_")

	category := query.Get("category")
	if category != "" {
		if err := h.validator.ValidateInput(category); err != nil {
			h.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	photosensitive, filterPhoto, err := parseBoolFilter(r, "photosensitive")
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	centralLine, filterCentral, err := parseBoolFilter(r, "centralLine")
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	results := []entities.DrugRecord{}
	for _, d := range h.dataStore.GetDrugs() {
		if lowerSearch != "" &&
			!strings.Contains(string(d.ID), idSearch) &&
			!strings.Contains(strings.ToLower(d.DisplayName.Primary), lowerSearch) &&
			!strings.Contains(strings.ToLower(d.DisplayName.Secondary), lowerSearch) {
			continue
		}
		if category != "" && !strings.EqualFold(d.Category.Primary, category) && !strings.EqualFold(d.Category.Secondary, category) {
			continue
		}
		if filterPhoto && d.IsPhotosensitive != photosensitive {
			continue
		}
		if filterCentral && d.RequiresCentralLine != centralLine {
			continue
		}
		results = append(results, d)
	}

	// Always return 200 with results array (empty if no matches)
	h.RespondWithJSON(w, http.StatusOK, ListResponse[entities.DrugRecord]{Data: results, Total: len(results)})
}

// GetDrug returns one drug by id
func (h *HTTPHandlerImpl) GetDrug(w http.ResponseWriter, r *http.Request) {
	id, err := h.validator.ValidateDrugID(chi.URLParam(r, "id"))
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	drug, exists := h.dataStore.GetDrugsMap()[id]
	if !exists {
		h.RespondWithError(w, http.StatusNotFound, "Drug not found")
		return
	}

	h.RespondWithJSON(w, http.StatusOK, drug)
}

// ListCompatibility returns compatibility entries, optionally filtered by code and drug
func (h *HTTPHandlerImpl) ListCompatibility(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var code entities.CompatibilityCode
	if raw := query.Get("code"); raw != "" {
		parsed, err := h.validator.ValidateCode(raw)
		if err != nil {
			h.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		code = parsed
	}

	var drug entities.DrugID
	if raw := query.Get("drug"); raw != "" {
		parsed, err := h.validator.ValidateDrugID(raw)
		if err != nil {
			h.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if _, exists := h.dataStore.GetDrugsMap()[parsed]; !exists {
			h.RespondWithError(w, http.StatusNotFound, "Drug not found")
			return
		}
		drug = parsed
	}

	results := []entities.CompatibilityEntry{}
	for _, e := range h.dataStore.GetCompatibility() {
		if code != "" && e.Code != code {
			continue
		}
		if drug != "" && e.Drug1 != drug && e.Drug2 != drug {
			continue
		}
		results = append(results, e)
	}

	h.RespondWithJSON(w, http.StatusOK, ListResponse[entities.CompatibilityEntry]{Data: results, Total: len(results)})
}

// GetPairCompatibility returns the entry for two drugs given in either order.
// A pair without an entry is reported with the unknown code.
func (h *HTTPHandlerImpl) GetPairCompatibility(w http.ResponseWriter, r *http.Request) {
	drug1, err := h.validator.ValidateDrugID(chi.URLParam(r, "drug1"))
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	drug2, err := h.validator.ValidateDrugID(chi.URLParam(r, "drug2"))
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if drug1 == drug2 {
		h.RespondWithError(w, http.StatusBadRequest, "A drug cannot be paired with itself")
		return
	}

	drugs := h.dataStore.GetDrugsMap()
	for _, id := range []entities.DrugID{drug1, drug2} {
		if _, exists := drugs[id]; !exists {
			h.RespondWithError(w, http.StatusNotFound, fmt.Sprintf("Drug not found: %s", id))
			return
		}
	}

	key := entities.NewPairKey(drug1, drug2)
	entry, found := h.dataStore.GetPairsMap()[key]
	if !found {
		entry = entities.CompatibilityEntry{
			Drug1:       key.A,
			Drug2:       key.B,
			Code:        entities.CodeUnknown,
			Description: entities.CodeUnknown.Description(),
		}
	}

	h.RespondWithJSON(w, http.StatusOK, PairResponse{
		CompatibilityEntry: entry,
		Severity:           entry.Code.Severity(),
		RequiresWarning:    entry.Code.RequiresWarning(),
		IsCritical:         entry.Code.IsCritical(),
		Found:              found,
	})
}

// AnalyzeCombination checks every pair of a comma-separated drug list
func (h *HTTPHandlerImpl) AnalyzeCombination(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("drugs")
	if strings.TrimSpace(raw) == "" {
		h.RespondWithError(w, http.StatusBadRequest, "Missing drugs parameter")
		return
	}

	parts := strings.Split(raw, ",")
	if len(parts) > MaxAnalysisDrugs {
		h.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("Too many drugs: maximum %d allowed", MaxAnalysisDrugs))
		return
	}

	drugs := h.dataStore.GetDrugsMap()
	ids := make([]entities.DrugID, 0, len(parts))
	seen := make(map[entities.DrugID]bool, len(parts))
	var unknown []string
	for _, part := range parts {
		id, err := h.validator.ValidateDrugID(part)
		if err != nil {
			h.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, exists := drugs[id]; !exists {
			unknown = append(unknown, string(id))
			continue
		}
		ids = append(ids, id)
	}

	if len(unknown) > 0 {
		h.RespondWithError(w, http.StatusNotFound, "Drugs not found: "+strings.Join(unknown, ", "))
		return
	}
	if len(ids) < minAnalysisDrugs {
		h.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("At least %d distinct drugs are required", minAnalysisDrugs))
		return
	}

	h.RespondWithJSON(w, http.StatusOK, Analyze(ids, drugs, h.dataStore.GetPairsMap()))
}

// ServeDiagnostics returns the data quality warnings of the current dataset
func (h *HTTPHandlerImpl) ServeDiagnostics(w http.ResponseWriter, r *http.Request) {
	diagnostics := h.dataStore.GetDiagnostics()

	items := []entities.Diagnostic{}
	if kind := r.URL.Query().Get("kind"); kind != "" {
		items = append(items, diagnostics.OfKind(entities.DiagnosticKind(kind))...)
	} else if diagnostics != nil {
		items = append(items, diagnostics.Items...)
	}

	var generatedAt string
	if ds := h.dataStore.GetDataset(); ds != nil && !ds.Metadata.GeneratedAt.IsZero() {
		generatedAt = ds.Metadata.GeneratedAt.Format(time.RFC3339)
	}

	h.RespondWithJSON(w, http.StatusOK, map[string]any{
		"generatedAt": generatedAt,
		"total":       len(items),
		"byKind":      diagnostics.CountByKind(),
		"items":       items,
	})
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, details, httpStatus := h.healthChecker.HealthCheck()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(h.dataStore.GetServerStartTime())

	response := HealthResponse{
		Status:        status,
		Uptime:        formatUptimeHuman(uptime),
		UptimeSeconds: uptime.Seconds(),
		Data:          details,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       int(m.Alloc / 1024 / 1024),
				"total_alloc_mb": int(m.TotalAlloc / 1024 / 1024),
				"sys_mb":         int(m.Sys / 1024 / 1024),
				"num_gc":         m.NumGC,
			},
		},
	}

	h.RespondWithJSON(w, httpStatus, response)
}
