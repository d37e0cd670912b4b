package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/scigolab/artifacts"
	"github.com/YuminosukeSato/scigolab/dataset"
	"github.com/YuminosukeSato/scigolab/experiment"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"github.com/YuminosukeSato/scigolab/report"
	"github.com/YuminosukeSato/scigolab/store"
)

var runFlags struct {
	file       string
	target     string
	algorithm  string
	split      float64
	features   []string
	seed       int64
	reportPath string
	logLevel   string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Train and evaluate one model on a local file",
	Long: `Loads a CSV or XLSX file, trains the chosen algorithm on a seeded
train/test split and prints the test metrics. With --report the plots and
metrics are also written to a PDF.

Examples:
  scigolab run --file people.csv --target label --algorithm logistic_regression
  scigolab run -f houses.xlsx -t price --split 0.3 --report out.pdf`,
	RunE: runLocal,
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFlags.file, "file", "f", "", "dataset file (.csv or .xlsx)")
	f.StringVarP(&runFlags.target, "target", "t", "", "target column")
	f.StringVarP(&runFlags.algorithm, "algorithm", "a", "linear_regression", "algorithm id (see 'scigolab algorithms')")
	f.Float64Var(&runFlags.split, "split", experiment.DefaultSplitFraction, "fraction of rows held out for testing")
	f.StringSliceVar(&runFlags.features, "features", nil, "feature columns (default: every column but the target)")
	f.Int64Var(&runFlags.seed, "seed", 0, "random seed (0 uses the catalog default)")
	f.StringVar(&runFlags.reportPath, "report", "", "write a PDF report to this path")
	f.StringVar(&runFlags.logLevel, "log-level", "warn", "log level")
	_ = runCmd.MarkFlagRequired("file")
	_ = runCmd.MarkFlagRequired("target")
}

func runLocal(cmd *cobra.Command, _ []string) error {
	setupLogging(runFlags.logLevel)

	format, err := dataset.FormatFromFilename(runFlags.file)
	if err != nil {
		return err
	}
	fh, err := os.Open(runFlags.file)
	if err != nil {
		return errors.Wrapf(err, "open %s", runFlags.file)
	}
	defer fh.Close()
	tbl, err := dataset.Load(fh, format)
	if err != nil {
		return err
	}

	res, err := experiment.Run(cmd.Context(), tbl, experiment.RunConfig{
		Target:        runFlags.target,
		Features:      runFlags.features,
		SplitFraction: runFlags.split,
		Algorithm:     runFlags.algorithm,
		Seed:          runFlags.seed,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "algorithm: %s (%s)\n", res.Descriptor.ID, res.Descriptor.Kind)
	fmt.Fprintf(out, "rows: %d train, %d test\n", len(res.Split.TrainIdx), len(res.Split.TestIdx))
	for _, name := range res.Metrics.Names() {
		v, _ := res.Metrics.Get(name)
		fmt.Fprintf(out, "%s: %.4f\n", name, v)
	}

	if runFlags.reportPath == "" {
		return nil
	}
	arts, skipped := artifacts.Generate(res)
	for _, sk := range skipped {
		fmt.Fprintf(out, "skipped %s\n", sk)
	}
	pdf, err := report.Assemble(&store.ExperimentRecord{
		CreatedAt: time.Now().UTC(),
		Target:    runFlags.target,
		Features:  runFlags.features,
		Algorithm: res.Descriptor.ID,
		TaskKind:  res.Descriptor.Kind,
		Status:    store.StatusDone,
		Metrics:   res.Metrics,
		Artifacts: arts,
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(runFlags.reportPath, pdf, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", runFlags.reportPath)
	}
	fmt.Fprintf(out, "report: %s\n", filepath.Clean(runFlags.reportPath))
	return nil
}
