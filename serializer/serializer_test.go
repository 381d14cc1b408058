package serializer

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/giygas/drugcompat/matrixparser/entities"
)

func sampleInput() ([]entities.DrugRecord, []entities.CompatibilityEntry) {
	drugs := []entities.DrugRecord{
		{ID: "heparin", DisplayName: entities.Wrap("Eparina", "Heparin"), Category: entities.Wrap("Anticoagulanti", "Anticoagulants")},
		{ID: "vancomycin", DisplayName: entities.Wrap("Vancomicina", "Vancomycin"), Category: entities.Wrap("Antibiotici", "Antibiotics")},
		{ID: "propofol", DisplayName: entities.Wrap("Propofol"), Category: entities.Wrap("Sedativi/Analgesici", "Sedatives/Analgesics")},
	}
	entries := []entities.CompatibilityEntry{
		{Drug1: "heparin", Drug2: "vancomycin", Code: entities.CodeIncompatible, Description: entities.CodeIncompatible.Description()},
		{Drug1: "propofol", Drug2: "vancomycin", Code: entities.CodeSevere, Description: entities.CodeSevere.Description()},
		{Drug1: "heparin", Drug2: "propofol", Code: entities.CodeUnknown, Description: entities.CodeUnknown.Description()},
	}
	return drugs, entries
}

func TestBuild(t *testing.T) {
	drugs, entries := sampleInput()
	at := time.Date(2025, 6, 1, 12, 0, 0, 999, time.FixedZone("CEST", 7200))

	ds := Build(drugs, entries, BuildOptions{Version: "2.0.0", Source: "matrice.xlsx", GeneratedAt: at})

	meta := ds.Metadata
	if meta.TotalDrugs != 3 || meta.TotalCompatibilityEntries != 3 {
		t.Errorf("Expected totals 3/3, got %d/%d", meta.TotalDrugs, meta.TotalCompatibilityEntries)
	}
	if meta.SchemaVersion != entities.SchemaVersion {
		t.Errorf("Expected schema version %d, got %d", entities.SchemaVersion, meta.SchemaVersion)
	}
	if meta.GeneratedBy != DefaultGeneratedBy {
		t.Errorf("Expected generatedBy %s, got %s", DefaultGeneratedBy, meta.GeneratedBy)
	}
	if want := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC); !meta.GeneratedAt.Equal(want) {
		t.Errorf("Expected generatedAt %v, got %v", want, meta.GeneratedAt)
	}
	stats := meta.CompatibilityStats
	if stats.Incompatible != 1 || stats.Severe != 1 || stats.Unknown != 1 || stats.Compatible != 0 {
		t.Errorf("Unexpected stats %+v", stats)
	}
	if stats.Count(entities.CodeSevere) != 1 {
		t.Errorf("Expected Count(!) = 1, got %d", stats.Count(entities.CodeSevere))
	}
}

func TestBuild_EmptyInput(t *testing.T) {
	ds := Build(nil, nil, BuildOptions{GeneratedBy: "test"})

	if ds.Drugs == nil || ds.Compatibility == nil {
		t.Error("Expected non-nil slices so documents encode as []")
	}
	if ds.Metadata.GeneratedAt.IsZero() {
		t.Error("Expected generatedAt to default to now")
	}
	if ds.Metadata.GeneratedBy != "test" {
		t.Errorf("Expected generatedBy test, got %s", ds.Metadata.GeneratedBy)
	}

	raw, err := Encode(entities.CompatibilityDocument{Metadata: ds.Metadata, Compatibility: ds.Compatibility})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !strings.Contains(string(raw), `"compatibility": []`) {
		t.Errorf("Expected empty array in output, got %s", raw)
	}
}

func TestEncode_Shape(t *testing.T) {
	drugs, entries := sampleInput()
	entries[0].Notes = entities.Wrap("Eparina & vancomicina <1 mg/ml>")
	ds := Build(drugs, entries, BuildOptions{Version: "2.0.0", GeneratedAt: time.Unix(0, 0)})

	raw, err := Encode(entities.CompatibilityDocument{Metadata: ds.Metadata, Compatibility: ds.Compatibility})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	text := string(raw)

	for _, fragment := range []string{
		`"drug1Id": "heparin"`,
		`"compatibility": "!"`,
		`"compatibility": "null"`,
		`"it": "Incompatibile - NON somministrare insieme"`,
		`"en": "Incompatible - DO NOT administer together"`,
		`"generatedAt": "1970-01-01T00:00:00Z"`,
		`"schemaVersion": 2`,
		`"!": 1`,
	} {
		if !strings.Contains(text, fragment) {
			t.Errorf("Expected output to contain %s", fragment)
		}
	}
	if !strings.Contains(text, "Eparina & vancomicina <1 mg/ml>") {
		t.Error("Expected HTML escaping to be disabled")
	}
	if !strings.HasSuffix(text, "}\n") {
		t.Error("Expected output to end with a newline")
	}
}

func TestPersistAndLoad(t *testing.T) {
	drugs, entries := sampleInput()
	ds := Build(drugs, entries, BuildOptions{Version: "2.0.0", Source: "matrice.xlsx", GeneratedAt: time.Now()})
	dir := filepath.Join(t.TempDir(), "nested", "data")

	result, err := Persist(ds, dir)
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if result.IndexPath != filepath.Join(dir, IndexFile) || result.CompatibilityPath != filepath.Join(dir, CompatibilityFile) {
		t.Errorf("Unexpected paths %+v", result)
	}

	for _, p := range []string{result.IndexPath, result.CompatibilityPath} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("Expected %s to exist: %v", p, err)
		}
		if info.Mode().Perm() != 0o644 {
			t.Errorf("Expected mode 0644 for %s, got %v", p, info.Mode().Perm())
		}
	}
	if info, _ := os.Stat(result.IndexPath); int(info.Size()) != result.IndexBytes {
		t.Errorf("Expected %d index bytes, got %d", result.IndexBytes, info.Size())
	}

	var index map[string]json.RawMessage
	raw, _ := os.ReadFile(result.IndexPath)
	if err := json.Unmarshal(raw, &index); err != nil {
		t.Fatalf("Index is not valid JSON: %v", err)
	}
	if _, ok := index["drugs"]; !ok {
		t.Error("Expected drugs key in index")
	}
	if _, ok := index["compatibility"]; ok {
		t.Error("Index must not contain compatibility entries")
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !loaded.Metadata.GeneratedAt.Equal(ds.Metadata.GeneratedAt) {
		t.Errorf("Expected generatedAt %v, got %v", ds.Metadata.GeneratedAt, loaded.Metadata.GeneratedAt)
	}
	if loaded.Metadata.Source != "matrice.xlsx" || loaded.Metadata.CompatibilityStats != ds.Metadata.CompatibilityStats {
		t.Errorf("Expected metadata %+v, got %+v", ds.Metadata, loaded.Metadata)
	}
	if len(loaded.Drugs) != 3 || loaded.Compatibility[1].Code != entities.CodeSevere {
		t.Errorf("Unexpected loaded dataset %+v", loaded)
	}

	files, _ := os.ReadDir(dir)
	if len(files) != 2 {
		t.Errorf("Expected only the two documents in %s, found %d files", dir, len(files))
	}
}

func TestPersist_OverwritesPreviousRun(t *testing.T) {
	dir := t.TempDir()
	drugs, entries := sampleInput()

	if _, err := Persist(Build(drugs, entries, BuildOptions{}), dir); err != nil {
		t.Fatalf("First persist failed: %v", err)
	}
	second := Build(drugs[:1], nil, BuildOptions{GeneratedAt: time.Now().Add(time.Hour)})
	if _, err := Persist(second, dir); err != nil {
		t.Fatalf("Second persist failed: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Drugs) != 1 || len(loaded.Compatibility) != 0 {
		t.Errorf("Expected the second run to fully replace the first, got %d drugs and %d entries",
			len(loaded.Drugs), len(loaded.Compatibility))
	}
}

func TestPersist_Errors(t *testing.T) {
	if _, err := Persist(nil, t.TempDir()); !errors.Is(err, ErrPersist) {
		t.Errorf("Expected ErrPersist for nil dataset, got %v", err)
	}

	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to create blocker: %v", err)
	}
	drugs, entries := sampleInput()
	_, err := Persist(Build(drugs, entries, BuildOptions{}), filepath.Join(blocker, "data"))
	if !errors.Is(err, ErrPersist) {
		t.Errorf("Expected ErrPersist for unwritable destination, got %v", err)
	}
}

func TestPersist_IndexFailureSkipsCompatibility(t *testing.T) {
	dir := t.TempDir()

	// a non-empty directory where index.json should go cannot be renamed over
	if err := os.MkdirAll(filepath.Join(dir, IndexFile, "keep"), 0o755); err != nil {
		t.Fatalf("Failed to create index blocker: %v", err)
	}
	previous := []byte(`{"previous":true}`)
	compatPath := filepath.Join(dir, CompatibilityFile)
	if err := os.WriteFile(compatPath, previous, 0o644); err != nil {
		t.Fatalf("Failed to seed compatibility document: %v", err)
	}

	drugs, entries := sampleInput()
	_, err := Persist(Build(drugs, entries, BuildOptions{}), dir)
	if !errors.Is(err, ErrPersist) {
		t.Fatalf("Expected ErrPersist when index.json cannot be replaced, got %v", err)
	}
	if !strings.Contains(err.Error(), IndexFile) {
		t.Errorf("Expected error to name %s, got %v", IndexFile, err)
	}

	got, err := os.ReadFile(compatPath)
	if err != nil {
		t.Fatalf("Failed to read compatibility document: %v", err)
	}
	if string(got) != string(previous) {
		t.Errorf("Expected compatibility document untouched, got %s", got)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to list %s: %v", dir, err)
	}
	for _, f := range files {
		if strings.Contains(f.Name(), ".tmp-") {
			t.Errorf("Expected no temp files left behind, found %s", f.Name())
		}
	}
}

func TestPersist_KeepsSupplementaryDocuments(t *testing.T) {
	dir := t.TempDir()
	infoDir := filepath.Join(dir, "info")
	if err := os.MkdirAll(infoDir, 0o755); err != nil {
		t.Fatalf("Failed to create info dir: %v", err)
	}
	supplementary := map[string]string{
		"heparin.json":    `{"id":"heparin","notes":"handwritten"}`,
		"vancomycin.json": `{"id":"vancomycin"}`,
	}
	for name, content := range supplementary {
		if err := os.WriteFile(filepath.Join(infoDir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	drugs, entries := sampleInput()
	for range 2 {
		if _, err := Persist(Build(drugs, entries, BuildOptions{}), dir); err != nil {
			t.Fatalf("Persist failed: %v", err)
		}
	}

	for name, content := range supplementary {
		got, err := os.ReadFile(filepath.Join(infoDir, name))
		if err != nil {
			t.Errorf("Expected info/%s to survive, got %v", name, err)
			continue
		}
		if string(got) != content {
			t.Errorf("Expected info/%s unchanged, got %s", name, got)
		}
	}
}

func TestLoad_MismatchedRuns(t *testing.T) {
	dir := t.TempDir()
	drugs, entries := sampleInput()

	first := Build(drugs, entries, BuildOptions{GeneratedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)})
	if _, err := Persist(first, dir); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	second := Build(drugs, entries, BuildOptions{GeneratedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)})
	raw, err := Encode(entities.IndexDocument{Metadata: second.Metadata, Drugs: second.Drugs})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, IndexFile), raw, 0o644); err != nil {
		t.Fatalf("Failed to overwrite index: %v", err)
	}

	if _, err := Load(dir); err == nil {
		t.Error("Expected error for documents from different runs")
	}
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Expected error for empty directory")
	}
}
