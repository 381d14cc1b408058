package matrixparser

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/giygas/drugcompat/interfaces"
	"github.com/giygas/drugcompat/logging"
	"github.com/giygas/drugcompat/matrixparser/entities"
	"github.com/giygas/drugcompat/metrics"
	"github.com/giygas/drugcompat/serializer"
	"github.com/giygas/drugcompat/sourcereader"
)

// Compile-time check to ensure CompatibilityParser implements Parser interface
var _ interfaces.Parser = (*CompatibilityParser)(nil)

// ParserConfig locates the source and the output of a run.
type ParserConfig struct {
	SourcePath string
	Sheet      string
	// OutputDir receives index.json and compatibility.json. Empty skips writing.
	OutputDir string
	Version   string
}

// CompatibilityParser runs source -> pipeline -> dataset -> disk.
type CompatibilityParser struct {
	cfg      ParserConfig
	pipeline *Pipeline
	now      func() time.Time
}

// NewCompatibilityParser creates a parser bound to one source file
func NewCompatibilityParser(cfg ParserConfig, rules *Ruleset) *CompatibilityParser {
	return &CompatibilityParser{
		cfg:      cfg,
		pipeline: NewPipeline(rules),
		now:      time.Now,
	}
}

// WithClock replaces the clock used for generatedAt.
func (p *CompatibilityParser) WithClock(now func() time.Time) *CompatibilityParser {
	p.now = now
	return p
}

// SourcePath returns the file the parser reads.
func (p *CompatibilityParser) SourcePath() string {
	return p.cfg.SourcePath
}

// ParseDataset implements the Parser interface
func (p *CompatibilityParser) ParseDataset() (*entities.Dataset, *entities.Diagnostics, error) {
	start := time.Now()

	dataset, diags, err := p.run()
	outcome := metrics.OutcomeSuccess
	switch {
	case err != nil:
		outcome = metrics.OutcomeFailure
	case diags.Len() > 0:
		outcome = metrics.OutcomeWarnings
	}

	counts := make(map[string]int)
	for kind, n := range diags.CountByKind() {
		counts[string(kind)] = n
	}
	metrics.RecordPipelineRun(outcome, time.Since(start), counts)

	if err != nil {
		logging.Error("Dataset generation failed", "source", p.cfg.SourcePath, "error", err)
		return nil, diags, err
	}

	logging.Info("Dataset generated",
		"source", p.cfg.SourcePath,
		"drugs", dataset.Metadata.TotalDrugs,
		"entries", dataset.Metadata.TotalCompatibilityEntries,
		"diagnostics", diags.Len(),
		"duration", time.Since(start))

	return dataset, diags, nil
}

func (p *CompatibilityParser) run() (*entities.Dataset, *entities.Diagnostics, error) {
	table, err := sourcereader.Read(p.cfg.SourcePath, sourcereader.Options{Sheet: p.cfg.Sheet})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read source: %w", err)
	}

	result, err := p.pipeline.Run(table)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to process source: %w", err)
	}

	dataset := serializer.Build(result.Drugs, result.Compatibility, serializer.BuildOptions{
		Version:     p.cfg.Version,
		Source:      filepath.Base(p.cfg.SourcePath),
		GeneratedAt: p.now(),
	})

	if p.cfg.OutputDir != "" {
		if _, err := serializer.Persist(dataset, p.cfg.OutputDir); err != nil {
			return nil, result.Diagnostics, fmt.Errorf("failed to write dataset: %w", err)
		}
	}

	return dataset, result.Diagnostics, nil
}
