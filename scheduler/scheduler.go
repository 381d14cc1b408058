// Package scheduler keeps the served dataset fresh. It regenerates the dataset
// at fixed times of day, on source file changes and on demand, and watches
// for data that has not been refreshed for too long.
package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/giygas/drugcompat/health"
	"github.com/giygas/drugcompat/interfaces"
	"github.com/giygas/drugcompat/logging"
	"github.com/giygas/drugcompat/serializer"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// ErrNoSchedule is returned by Start when no refresh time is usable.
var ErrNoSchedule = errors.New("no valid refresh time configured")

const (
	defaultStaleAfter      = 25 * time.Hour
	defaultMonitorInterval = time.Hour
)

// Options tunes a Scheduler. Zero values select the defaults.
type Options struct {
	// RefreshTimes are "HH:MM" times of day in local time
	RefreshTimes []string
	// OutputDir receives every dataset that passes validation and is read
	// back when the first generation fails. Empty keeps datasets in memory.
	OutputDir       string
	StaleAfter      time.Duration
	MonitorInterval time.Duration
}

// Scheduler handles dataset regeneration and staleness monitoring
type Scheduler struct {
	dataStore interfaces.DataStore
	parser    interfaces.Parser
	validator interfaces.DataValidator
	scheduler *gocron.Scheduler
	opts      Options

	stopOnce sync.Once
	stop     chan struct{}
}

// NewScheduler creates a new scheduler instance with injected dependencies
func NewScheduler(dataStore interfaces.DataStore, parser interfaces.Parser, validator interfaces.DataValidator, opts Options) *Scheduler {
	if opts.RefreshTimes == nil {
		opts.RefreshTimes = health.DefaultRefreshTimes
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = defaultStaleAfter
	}
	if opts.MonitorInterval <= 0 {
		opts.MonitorInterval = defaultMonitorInterval
	}

	return &Scheduler{
		dataStore: dataStore,
		parser:    parser,
		validator: validator,
		scheduler: gocron.NewScheduler(time.Local),
		opts:      opts,
		stop:      make(chan struct{}),
	}
}

// Start loads the first dataset, schedules the daily refreshes and starts
// the staleness monitor
func (s *Scheduler) Start() error {
	times := validTimes(s.opts.RefreshTimes)
	if len(times) == 0 {
		return ErrNoSchedule
	}

	// Initial load
	if err := s.updateData(); err != nil {
		logging.Error("Failed to perform initial data load", "error", err)
		if fallbackErr := s.loadFallback(); fallbackErr != nil {
			return fmt.Errorf("initial data load failed: %w", err)
		}
	}

	_, err := s.scheduler.Every(1).Days().At(strings.Join(times, ";")).Do(func() {
		if err := s.updateData(); err != nil {
			logging.Error("Failed to update data", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule updates", "error", err)
		return fmt.Errorf("failed to schedule updates: %w", err)
	}

	s.scheduler.StartAsync()
	logging.Info("Dataset refresh scheduled", "times", times)

	s.startHealthMonitoring()

	return nil
}

// Stop stops the scheduled jobs and the monitor
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.stopOnce.Do(func() { close(s.stop) })
}

// Refresh regenerates the dataset now. It is a no-op while another update
// is running.
func (s *Scheduler) Refresh() error {
	return s.updateData()
}

func validTimes(refreshTimes []string) []string {
	var times []string
	for _, raw := range refreshTimes {
		raw = strings.TrimSpace(raw)
		if _, err := time.Parse("15:04", raw); err != nil {
			logging.Warn("Ignoring invalid refresh time", "value", raw)
			continue
		}
		times = append(times, raw)
	}
	return times
}

// updateData runs the parser and publishes the result if it passes validation
func (s *Scheduler) updateData() error {
	// Prevent concurrent updates
	if !s.dataStore.BeginUpdate() {
		logging.Info("Update already in progress, skipping...")
		return nil
	}
	defer s.dataStore.EndUpdate()

	logging.Info("Starting dataset update", "at", time.Now().Format(time.RFC3339))
	start := time.Now()

	dataset, diagnostics, err := s.parser.ParseDataset()
	if err != nil {
		return fmt.Errorf("failed to generate dataset: %w", err)
	}

	// Keep serving the previous dataset when the new one is inconsistent
	if err := s.validator.ValidateDataset(dataset); err != nil {
		return fmt.Errorf("generated dataset is invalid: %w", err)
	}

	report := s.validator.ReportDataQuality(dataset)

	if len(report.DrugsWithoutPairs) > 0 {
		logging.Warn("Drugs without compatibility entries",
			"total", len(report.DrugsWithoutPairs),
			"drug_list", report.DrugsWithoutPairs,
		)
	}

	if report.MissingPairs > 0 {
		logging.Warn("Drug pairs without compatibility data", "count", report.MissingPairs)
	}

	if report.UncategorizedDrugs > 0 {
		logging.Warn("Drugs without a specific category", "count", report.UncategorizedDrugs)
	}

	// Only validated datasets reach disk, so the fallback stays servable
	if s.opts.OutputDir != "" {
		if _, err := serializer.Persist(dataset, s.opts.OutputDir); err != nil {
			logging.Error("Failed to persist dataset, serving it from memory only",
				"dir", s.opts.OutputDir, "error", err)
		}
	}

	s.dataStore.UpdateData(dataset, diagnostics)

	logging.Info("Dataset update completed",
		"duration", time.Since(start).String(),
		"drug_count", len(dataset.Drugs),
		"entry_count", len(dataset.Compatibility),
		"diagnostics", diagnostics.Len(),
	)

	return nil
}

// loadFallback serves the last dataset written to disk
func (s *Scheduler) loadFallback() error {
	if s.opts.OutputDir == "" {
		return errors.New("no fallback directory configured")
	}

	dataset, err := serializer.Load(s.opts.OutputDir)
	if err != nil {
		logging.Error("Failed to load persisted dataset", "dir", s.opts.OutputDir, "error", err)
		return err
	}
	if err := s.validator.ValidateDataset(dataset); err != nil {
		logging.Error("Persisted dataset is invalid", "dir", s.opts.OutputDir, "error", err)
		return err
	}

	s.dataStore.UpdateData(dataset, nil)
	logging.Warn("Serving previously persisted dataset",
		"dir", s.opts.OutputDir,
		"generated_at", dataset.Metadata.GeneratedAt.Format(time.RFC3339),
	)
	return nil
}

// startHealthMonitoring warns when the data has not been refreshed for too long
func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(s.opts.MonitorInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				lastUpdate := s.dataStore.GetLastUpdated()
				if time.Since(lastUpdate) > s.opts.StaleAfter {
					logging.Warn("Dataset has not been updated recently",
						"last_update", lastUpdate.Format(time.RFC3339),
						"threshold", s.opts.StaleAfter.String(),
					)
				}
			}
		}
	}()
}
