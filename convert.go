package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/giygas/drugcompat/matrixparser"
	"github.com/giygas/drugcompat/matrixparser/entities"
	"github.com/spf13/cobra"
)

type convertOptions struct {
	input   string
	output  string
	sheet   string
	rules   string
	version string
	strict  bool
	report  string
}

func newConvertCmd() *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a compatibility spreadsheet into index.json and compatibility.json",
		Example: `  drugcompat convert --input matrice.xlsx --output public/data
  drugcompat convert -i export.csv -o public/data --strict --report diagnostics.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "source spreadsheet (.xlsx, .csv, .tsv, .txt)")
	f.StringVarP(&opts.output, "output", "o", "", "directory receiving the dataset")
	f.StringVar(&opts.sheet, "sheet", "", "worksheet name for .xlsx sources (default: first sheet)")
	f.StringVar(&opts.rules, "rules", "", "YAML ruleset overriding suffixes, aliases, categories and header variants")
	f.StringVar(&opts.version, "version", "2.0.0", "dataset version written in the metadata")
	f.BoolVar(&opts.strict, "strict", false, "exit with status 2 when data quality warnings were raised")
	f.StringVar(&opts.report, "report", "", "write the diagnostics as JSON to this file")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runConvert(cmd *cobra.Command, opts convertOptions) error {
	initCLILogging(cmd)

	rules, err := loadRules(opts.rules)
	if err != nil {
		return err
	}

	parser := matrixparser.NewCompatibilityParser(matrixparser.ParserConfig{
		SourcePath: opts.input,
		Sheet:      opts.sheet,
		OutputDir:  opts.output,
		Version:    opts.version,
	}, rules)

	dataset, diags, err := parser.ParseDataset()
	if err != nil {
		return err
	}

	if opts.report != "" {
		if err := writeReport(opts.report, dataset, diags); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %d drugs and %d compatibility entries to %s\n",
		dataset.Metadata.TotalDrugs, dataset.Metadata.TotalCompatibilityEntries, opts.output)
	printDiagnosticCounts(out, diags)

	return strictCheck(opts.strict, diags)
}

func strictCheck(strict bool, diags *entities.Diagnostics) error {
	if strict && diags.Len() > 0 {
		return &exitError{
			code: exitStrict,
			err:  fmt.Errorf("%d data quality warnings in strict mode", diags.Len()),
		}
	}
	return nil
}

func printDiagnosticCounts(w io.Writer, diags *entities.Diagnostics) {
	fmt.Fprintf(w, "Diagnostics: %d\n", diags.Len())

	counts := diags.CountByKind()
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(w, "  %-18s %d\n", kind, counts[entities.DiagnosticKind(kind)])
	}
}

// diagnosticsReport is the --report document
type diagnosticsReport struct {
	Source      string                          `json:"source"`
	GeneratedAt time.Time                       `json:"generatedAt"`
	Total       int                             `json:"total"`
	ByKind      map[entities.DiagnosticKind]int `json:"byKind"`
	Items       []entities.Diagnostic           `json:"items"`
}

func writeReport(path string, dataset *entities.Dataset, diags *entities.Diagnostics) error {
	report := diagnosticsReport{
		Source:      dataset.Metadata.Source,
		GeneratedAt: dataset.Metadata.GeneratedAt,
		Total:       diags.Len(),
		ByKind:      diags.CountByKind(),
		Items:       []entities.Diagnostic{},
	}
	if diags != nil {
		report.Items = append(report.Items, diags.Items...)
	}

	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
