package commands

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/penwyp/go-activity-report/internal/application/report"
	"github.com/penwyp/go-activity-report/internal/data/aggregator"
	"github.com/penwyp/go-activity-report/internal/data/parser"
	"github.com/penwyp/go-activity-report/internal/data/scanner"
	"github.com/penwyp/go-activity-report/internal/metrics"
	"github.com/penwyp/go-activity-report/internal/presentation/formatter"
	"github.com/penwyp/go-activity-report/internal/util"
	"github.com/spf13/cobra"
)

var (
	aggregateInput           string
	aggregateConcurrency     int
	aggregateOutput          string
	aggregateMaxApplications int
	aggregateMaxCategories   int
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Fold activity exports into a snapshot",
	Long: `Runs one report extension pass: reads the view-state of the report context,
folds every activity record found in the JSONL exports under --input and
writes the resulting snapshot.

Each line of an export is one activity record:
  {"durationSeconds":120,"pickups":3,"notifications":1,
   "application":{"bundleIdentifier":"com.example.a","localizedDisplayName":"A"},
   "category":{"localizedDisplayName":"Social"}}`,
	RunE: runAggregate,
}

func init() {
	rootCmd.AddCommand(aggregateCmd)

	aggregateCmd.Flags().StringVarP(&aggregateInput, "input", "i", "",
		"JSONL export file or directory")
	aggregateCmd.Flags().IntVar(&aggregateConcurrency, "concurrency", runtime.NumCPU(),
		"Number of files parsed concurrently")
	aggregateCmd.Flags().StringVarP(&aggregateOutput, "output", "o", "",
		"Also print the snapshot (table, json, csv, summary)")
	aggregateCmd.Flags().IntVar(&aggregateMaxApplications, "max-applications", 0,
		"Override the application list cap")
	aggregateCmd.Flags().IntVar(&aggregateMaxCategories, "max-categories", 0,
		"Override the category list cap")
	_ = aggregateCmd.MarkFlagRequired("input")
}

func runAggregate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var out formatter.Formatter
	if aggregateOutput != "" {
		if out, err = formatter.New(aggregateOutput); err != nil {
			return err
		}
	}

	files, err := scanner.NewFileScanner(expandPath(aggregateInput)).Scan()
	if err != nil {
		return err
	}
	util.LogInfof("Found %d export files", len(files))

	m := metrics.New()
	st, err := openStore(cmd.Context(), cfg, m)
	if err != nil {
		return err
	}
	defer st.Backend().Close()

	p := parser.NewParser(aggregateConcurrency)
	ext := report.NewExtension(st,
		report.WithReportContext(reportContext),
		report.WithExtensionMetrics(m),
		report.WithAggregatorOptions(aggregator.WithLimits(aggregateMaxApplications, aggregateMaxCategories)),
	)

	conf, runErr := ext.MakeConfiguration(cmd.Context(), p.Records(cmd.Context(), files))
	if err := cmd.Context().Err(); err != nil {
		return err
	}

	stats := p.Stats()
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Context:        %s\n", ext.ReportContext())
	fmt.Fprintf(w, "Total activity: %s\n", conf.TotalActivityLabel)
	fmt.Fprintf(w, "Updated:        %s\n", conf.GeneratedAtLabel)
	fmt.Fprintf(w, "Records:        %d (%d lines skipped)\n", stats.Records, stats.Skipped)
	fmt.Fprintf(w, "Run:            %s\n", conf.RunID)

	if out != nil {
		fmt.Fprintln(w)
		if err := out.Format(w, conf.Snapshot); err != nil {
			return errors.Join(runErr, err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("snapshot not persisted: %w", runErr)
	}
	return nil
}
