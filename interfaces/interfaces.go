// Package interfaces defines the contracts between the pipeline, the data
// store and the HTTP layer so each side can be tested with fakes.
package interfaces

import (
	"net/http"
	"time"

	"github.com/giygas/drugcompat/matrixparser/entities"
)

// DataQualityReport summarizes integrity problems found in a dataset
type DataQualityReport struct {
	DuplicateDrugIDs []entities.DrugID
	DuplicatePairs   []entities.PairKey
	SelfPairs        []entities.DrugID
	// Entries where drug1 does not sort before drug2
	MisorderedPairs int
	// Entries naming a drug missing from the index
	UnknownDrugPairs []entities.PairKey
	InvalidCodes     int
	// Drugs that appear in no compatibility entry
	DrugsWithoutPairs []entities.DrugID
	// Pairs of the full N×N matrix with no entry
	MissingPairs       int
	UncategorizedDrugs int
	// Metadata counters disagree with the content
	StatsMismatch bool
}

// DataStore holds the dataset being served. Readers always see a complete
// dataset; updates replace it atomically.
type DataStore interface {
	// Data retrieval methods
	GetDataset() *entities.Dataset
	GetDrugs() []entities.DrugRecord
	GetDrugsMap() map[entities.DrugID]entities.DrugRecord
	GetCompatibility() []entities.CompatibilityEntry
	GetPairsMap() map[entities.PairKey]entities.CompatibilityEntry
	GetDiagnostics() *entities.Diagnostics
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time

	// Data update methods
	UpdateData(dataset *entities.Dataset, diagnostics *entities.Diagnostics)
	BeginUpdate() bool
	EndUpdate()
}

// Parser produces a dataset from the configured source.
type Parser interface {
	// ParseDataset reads the source and returns the dataset with every
	// data quality diagnostic raised on the way
	ParseDataset() (*entities.Dataset, *entities.Diagnostics, error)
}

// Scheduler runs dataset regeneration in the background.
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()
}

// HTTPHandler defines the API endpoints.
type HTTPHandler interface {
	ListDrugs(w http.ResponseWriter, r *http.Request)
	GetDrug(w http.ResponseWriter, r *http.Request)
	ListCompatibility(w http.ResponseWriter, r *http.Request)
	GetPairCompatibility(w http.ResponseWriter, r *http.Request)
	AnalyzeCombination(w http.ResponseWriter, r *http.Request)
	ServeDiagnostics(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker reports service health.
type HealthChecker interface {
	// HealthCheck returns the status, data-related details and HTTP status code
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextUpdate returns the next scheduled regeneration time
	CalculateNextUpdate() time.Time
}

// DataValidator checks datasets and user input.
type DataValidator interface {
	// ValidateDrug checks a single drug record
	ValidateDrug(d *entities.DrugRecord) error

	// ValidateDataset checks dataset integrity and returns the first problem
	ValidateDataset(ds *entities.Dataset) error

	// ReportDataQuality lists every integrity problem found
	ReportDataQuality(ds *entities.Dataset) *DataQualityReport

	// ValidateInput validates free-text user input
	ValidateInput(input string) error

	// ValidateDrugID validates a drug identifier from a URL
	ValidateDrugID(input string) (entities.DrugID, error)

	// ValidateCode validates a compatibility code filter
	ValidateCode(input string) (entities.CompatibilityCode, error)
}
