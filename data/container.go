// Package data holds the dataset being served. Every update publishes a new
// snapshot with one atomic store, so readers see either the old dataset or
// the new one and never a mix.
package data

import (
	"sync/atomic"
	"time"

	"github.com/giygas/drugcompat/interfaces"
	"github.com/giygas/drugcompat/logging"
	"github.com/giygas/drugcompat/matrixparser/entities"
	"github.com/giygas/drugcompat/metrics"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

// snapshot is one immutable generation of served data with its lookup maps
type snapshot struct {
	dataset     *entities.Dataset
	drugsMap    map[entities.DrugID]entities.DrugRecord
	pairsMap    map[entities.PairKey]entities.CompatibilityEntry
	diagnostics *entities.Diagnostics
}

// DataContainer holds the current snapshot with atomic access
type DataContainer struct {
	current         atomic.Value // *snapshot
	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a container with an empty dataset
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.current.Store(newSnapshot(nil, nil))
	dc.lastUpdated.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

func newSnapshot(dataset *entities.Dataset, diagnostics *entities.Diagnostics) *snapshot {
	if dataset == nil {
		dataset = &entities.Dataset{
			Drugs:         []entities.DrugRecord{},
			Compatibility: []entities.CompatibilityEntry{},
		}
	}
	if diagnostics == nil {
		diagnostics = &entities.Diagnostics{}
	}

	// O(1) lookups for the id and pair endpoints
	drugsMap := make(map[entities.DrugID]entities.DrugRecord, len(dataset.Drugs))
	for _, d := range dataset.Drugs {
		drugsMap[d.ID] = d
	}
	pairsMap := make(map[entities.PairKey]entities.CompatibilityEntry, len(dataset.Compatibility))
	for _, e := range dataset.Compatibility {
		pairsMap[e.Pair()] = e
	}

	return &snapshot{
		dataset:     dataset,
		drugsMap:    drugsMap,
		pairsMap:    pairsMap,
		diagnostics: diagnostics,
	}
}

func (dc *DataContainer) load() *snapshot {
	if v := dc.current.Load(); v != nil {
		if s, ok := v.(*snapshot); ok && s != nil {
			return s
		}
	}

	logging.Warn("Dataset snapshot is empty or invalid")
	return newSnapshot(nil, nil)
}

// GetDataset returns the whole dataset
func (dc *DataContainer) GetDataset() *entities.Dataset {
	return dc.load().dataset
}

// GetDrugs returns the drug records in source column order
func (dc *DataContainer) GetDrugs() []entities.DrugRecord {
	return dc.load().dataset.Drugs
}

// GetDrugsMap returns the drugs keyed by id
func (dc *DataContainer) GetDrugsMap() map[entities.DrugID]entities.DrugRecord {
	return dc.load().drugsMap
}

// GetCompatibility returns the compatibility entries
func (dc *DataContainer) GetCompatibility() []entities.CompatibilityEntry {
	return dc.load().dataset.Compatibility
}

// GetPairsMap returns the entries keyed by unordered pair
func (dc *DataContainer) GetPairsMap() map[entities.PairKey]entities.CompatibilityEntry {
	return dc.load().pairsMap
}

// GetDiagnostics returns the diagnostics of the run that produced the dataset
func (dc *DataContainer) GetDiagnostics() *entities.Diagnostics {
	return dc.load().diagnostics
}

// GetLastUpdated returns the timestamp of the last data update
func (dc *DataContainer) GetLastUpdated() time.Time {
	if v := dc.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating returns true if a data update is currently in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// UpdateData publishes a new dataset
func (dc *DataContainer) UpdateData(dataset *entities.Dataset, diagnostics *entities.Diagnostics) {
	s := newSnapshot(dataset, diagnostics)

	// Atomic swap (zero downtime replacement)
	dc.current.Store(s)
	dc.lastUpdated.Store(time.Now())

	metrics.SetDatasetSize(len(s.dataset.Drugs), len(s.dataset.Compatibility))
}

// BeginUpdate marks the start of a data update operation
// Returns true if update can proceed, false if another update is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a data update operation
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
