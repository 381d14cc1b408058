// Package serializer assembles the output dataset and writes its two JSON
// documents.
package serializer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/giygas/drugcompat/logging"
	"github.com/giygas/drugcompat/matrixparser/entities"
)

const (
	IndexFile         = "index.json"
	CompatibilityFile = "compatibility.json"

	// DefaultGeneratedBy names the producer in the metadata envelope.
	DefaultGeneratedBy = "drugcompat"
)

// ErrPersist wraps every output I/O failure.
var ErrPersist = errors.New("persist error")

// BuildOptions describes the run that produced the data.
type BuildOptions struct {
	Version     string
	Source      string
	GeneratedBy string
	GeneratedAt time.Time
}

// PersistResult reports what was written.
type PersistResult struct {
	IndexPath          string
	CompatibilityPath  string
	IndexBytes         int
	CompatibilityBytes int
}

// Build wraps drugs and entries in a Dataset with computed metadata.
func Build(drugs []entities.DrugRecord, compatibility []entities.CompatibilityEntry, opts BuildOptions) *entities.Dataset {
	if drugs == nil {
		drugs = []entities.DrugRecord{}
	}
	if compatibility == nil {
		compatibility = []entities.CompatibilityEntry{}
	}

	generatedBy := opts.GeneratedBy
	if generatedBy == "" {
		generatedBy = DefaultGeneratedBy
	}
	generatedAt := opts.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	var stats entities.CompatibilityStats
	for _, e := range compatibility {
		stats.Add(e.Code)
	}

	return &entities.Dataset{
		Metadata: entities.Metadata{
			Version:                   opts.Version,
			SchemaVersion:             entities.SchemaVersion,
			GeneratedAt:               generatedAt.UTC().Truncate(time.Second),
			Source:                    opts.Source,
			GeneratedBy:               generatedBy,
			TotalDrugs:                len(drugs),
			TotalCompatibilityEntries: len(compatibility),
			CompatibilityStats:        stats,
		},
		Drugs:         drugs,
		Compatibility: compatibility,
	}
}

// Persist writes index.json then compatibility.json into dir. Each file is
// replaced atomically. When the index cannot be written the compatibility
// document is left untouched.
func Persist(dataset *entities.Dataset, dir string) (*PersistResult, error) {
	if dataset == nil {
		return nil, fmt.Errorf("%w: no dataset", ErrPersist)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create output directory %s: %v", ErrPersist, dir, err)
	}

	result := &PersistResult{
		IndexPath:         filepath.Join(dir, IndexFile),
		CompatibilityPath: filepath.Join(dir, CompatibilityFile),
	}

	n, err := writeDocument(result.IndexPath, entities.IndexDocument{
		Metadata: dataset.Metadata,
		Drugs:    dataset.Drugs,
	})
	if err != nil {
		return nil, err
	}
	result.IndexBytes = n

	n, err = writeDocument(result.CompatibilityPath, entities.CompatibilityDocument{
		Metadata:      dataset.Metadata,
		Compatibility: dataset.Compatibility,
	})
	if err != nil {
		return nil, err
	}
	result.CompatibilityBytes = n

	logging.Info("Dataset written",
		"dir", dir,
		"drugs", dataset.Metadata.TotalDrugs,
		"entries", dataset.Metadata.TotalCompatibilityEntries,
		"index_bytes", result.IndexBytes,
		"compatibility_bytes", result.CompatibilityBytes)

	return result, nil
}

// Encode renders a document the way it is written to disk.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeDocument(target string, v any) (int, error) {
	content, err := Encode(v)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to encode %s: %v", ErrPersist, filepath.Base(target), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("%w: failed to create temp file for %s: %v", ErrPersist, filepath.Base(target), err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			if err := os.Remove(tmpName); err != nil && !errors.Is(err, os.ErrNotExist) {
				logging.Warn("Failed to remove temp file", "file", tmpName, "error", err)
			}
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("%w: failed to write %s: %v", ErrPersist, filepath.Base(target), err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("%w: failed to sync %s: %v", ErrPersist, filepath.Base(target), err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("%w: failed to close %s: %v", ErrPersist, filepath.Base(target), err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return 0, fmt.Errorf("%w: failed to set permissions on %s: %v", ErrPersist, filepath.Base(target), err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return 0, fmt.Errorf("%w: failed to replace %s: %v", ErrPersist, filepath.Base(target), err)
	}
	committed = true

	return len(content), nil
}

// Load reads a previously persisted dataset back from dir.
func Load(dir string) (*entities.Dataset, error) {
	var index entities.IndexDocument
	if err := readDocument(filepath.Join(dir, IndexFile), &index); err != nil {
		return nil, err
	}
	var compat entities.CompatibilityDocument
	if err := readDocument(filepath.Join(dir, CompatibilityFile), &compat); err != nil {
		return nil, err
	}

	if !index.Metadata.GeneratedAt.Equal(compat.Metadata.GeneratedAt) {
		return nil, fmt.Errorf("%s and %s come from different runs", IndexFile, CompatibilityFile)
	}

	return &entities.Dataset{
		Metadata:      index.Metadata,
		Drugs:         index.Drugs,
		Compatibility: compat.Compatibility,
	}, nil
}

func readDocument(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
