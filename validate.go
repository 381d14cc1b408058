package main

import (
	"fmt"

	"github.com/giygas/drugcompat/matrixparser"
	"github.com/giygas/drugcompat/validation"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a compatibility spreadsheet without writing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "source spreadsheet (.xlsx, .csv, .tsv, .txt)")
	f.StringVar(&opts.sheet, "sheet", "", "worksheet name for .xlsx sources (default: first sheet)")
	f.StringVar(&opts.rules, "rules", "", "YAML ruleset overriding the built-in tables")
	f.BoolVar(&opts.strict, "strict", false, "exit with status 2 when data quality warnings were raised")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runValidate(cmd *cobra.Command, opts convertOptions) error {
	initCLILogging(cmd)

	rules, err := loadRules(opts.rules)
	if err != nil {
		return err
	}

	parser := matrixparser.NewCompatibilityParser(matrixparser.ParserConfig{
		SourcePath: opts.input,
		Sheet:      opts.sheet,
	}, rules)

	dataset, diags, err := parser.ParseDataset()
	if err != nil {
		return err
	}

	validator := validation.NewDataValidator()
	if err := validator.ValidateDataset(dataset); err != nil {
		return fmt.Errorf("dataset failed integrity check: %w", err)
	}
	quality := validator.ReportDataQuality(dataset)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Drugs: %d\n", dataset.Metadata.TotalDrugs)
	fmt.Fprintf(out, "Compatibility entries: %d\n", dataset.Metadata.TotalCompatibilityEntries)
	fmt.Fprintf(out, "Pairs without data: %d\n", quality.MissingPairs)
	if len(quality.DrugsWithoutPairs) > 0 {
		fmt.Fprintf(out, "Drugs without any entry: %v\n", quality.DrugsWithoutPairs)
	}

	printDiagnosticCounts(out, diags)
	for _, d := range diags.Items {
		fmt.Fprintf(out, "  [%s] row %d, column %d: %s\n", d.Kind, d.Row, d.Column, d.Message)
	}

	return strictCheck(opts.strict, diags)
}
