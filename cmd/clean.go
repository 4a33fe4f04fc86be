package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/in-your-face/internal/config"
	"github.com/kozaktomas/in-your-face/internal/database/postgres"
	"github.com/kozaktomas/in-your-face/internal/dataset"
	"github.com/kozaktomas/in-your-face/internal/fingerprint"
	"github.com/kozaktomas/in-your-face/internal/pipeline"
	"github.com/kozaktomas/in-your-face/internal/preprocess"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Crop and downsample face pairs",
	Long: `Load the train and test face pairs listed in two manifests, crop every image
to its central 128x128 region, downsample it and scale values to [0, 1].

Manifests are either CSV files with left,right,label columns or LFW pairs.txt
files. Relative image paths are resolved against --root (or LFW_ROOT).

Examples:
  # Clean CSV manifests with defaults (32x32, catmullrom)
  in-your-face clean --train train.csv --test test.csv --root ./lfw

  # Use the original LFW pair lists and store the result
  in-your-face clean --format lfw --train pairsDevTrain.txt --test pairsDevTest.txt \
    --root ./lfw --save lfw-32

  # Parallel workers and a smaller output
  in-your-face clean --train train.csv --test test.csv --size 16 --workers 8`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().String("train", "", "Train manifest")
	cleanCmd.Flags().String("test", "", "Test manifest")
	cleanCmd.Flags().String("format", pipeline.FormatCSV, "Manifest format: csv or lfw")
	cleanCmd.Flags().String("root", "", "Directory for relative image paths (default LFW_ROOT)")
	cleanCmd.Flags().Int("size", preprocess.DefaultDownsampleSize, "Output side length in pixels")
	cleanCmd.Flags().Int("workers", 1, "Number of parallel preprocessing workers")
	cleanCmd.Flags().Int("load-workers", 4, "Number of parallel image decoders")
	cleanCmd.Flags().String("interpolation", preprocess.DefaultInterpolation, "Resize kernel: "+strings.Join(preprocess.Interpolations(), ", "))
	cleanCmd.Flags().String("save", "", "Store the cleaned dataset in PostgreSQL under this name")
	cleanCmd.Flags().Bool("check-overlap", false, "Report test faces whose photograph also appears in the train split")
	cleanCmd.Flags().Int("overlap-threshold", fingerprint.DefaultThreshold, "Maximum hash distance for --check-overlap")
	cleanCmd.Flags().Bool("quiet", false, "Hide progress bars")
	_ = cleanCmd.MarkFlagRequired("train")
	_ = cleanCmd.MarkFlagRequired("test")
}

func runClean(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()
	out := cmd.OutOrStdout()

	runCfg := pipeline.Config{
		TrainManifest: mustGetString(cmd, "train"),
		TestManifest:  mustGetString(cmd, "test"),
		Format:        mustGetString(cmd, "format"),
		Root:          stringFlagOr(cmd, "root", cfg.Dataset.LFWRoot),
		LoadWorkers:   intFlagOr(cmd, "load-workers", cfg.Dataset.Workers),
		Preprocess: preprocess.Options{
			DownsampleSize: intFlagOr(cmd, "size", cfg.Preprocess.DownsampleSize),
			Workers:        intFlagOr(cmd, "workers", cfg.Preprocess.Workers),
			Interpolation:  stringFlagOr(cmd, "interpolation", cfg.Preprocess.Interpolation),
		},
		SaveAs:           mustGetString(cmd, "save"),
		CheckOverlap:     mustGetBool(cmd, "check-overlap"),
		OverlapThreshold: mustGetInt(cmd, "overlap-threshold"),
	}

	// Count pairs up front so the progress bars have a total.
	trainPairs, err := pipeline.ReadPairs(runCfg.TrainManifest, runCfg.Format, runCfg.Root)
	if err != nil {
		return fmt.Errorf("failed to read train manifest: %w", err)
	}
	testPairs, err := pipeline.ReadPairs(runCfg.TestManifest, runCfg.Format, runCfg.Root)
	if err != nil {
		return fmt.Errorf("failed to read test manifest: %w", err)
	}
	total := len(trainPairs) + len(testPairs)
	fmt.Fprintf(out, "Pairs: %d train, %d test\n", len(trainPairs), len(testPairs))

	if !mustGetBool(cmd, "quiet") {
		loadBar := newBar(cmd.ErrOrStderr(), total, "Loading images", "pairs")
		cleanBar := newBar(cmd.ErrOrStderr(), total, "Cleaning", "samples")
		runCfg.OnLoaded = func() { loadBar.Add(1) }
		runCfg.Preprocess.Progress = func() { cleanBar.Add(1) }
	}

	var store *postgres.DatasetRepository
	if runCfg.SaveAs != "" {
		fmt.Fprintln(out, "Connecting to PostgreSQL...")
		pool, err := postgres.Open(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		defer pool.Close()
		store = postgres.NewDatasetRepository(pool)
	}

	var report *pipeline.Report
	if store != nil {
		report, err = pipeline.Run(ctx, runCfg, store)
	} else {
		report, err = pipeline.Run(ctx, runCfg, nil)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	printSummary(out, "Train", report.TrainStats)
	printSummary(out, "Test", report.TestStats)
	if runCfg.CheckOverlap {
		printOverlap(out, report.Overlap, trainPairs, testPairs)
	}
	if report.DatasetID != "" {
		fmt.Fprintf(out, "Saved dataset %q (%s)\n", runCfg.SaveAs, report.DatasetID)
	}
	return nil
}

func newBar(w io.Writer, total int, description, unit string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString(unit),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}

func printSummary(w io.Writer, name string, s preprocess.Summary) {
	fmt.Fprintf(w, "%s: %d samples", name, s.Count)
	if s.Count == 0 {
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintf(w, ", values in [%.3f, %.3f]\n", s.Min, s.Max)
	for c, ch := range s.Channels {
		side := "left"
		if c >= 3 {
			side = "right"
		}
		fmt.Fprintf(w, "  channel %d (%s %c): mean %.4f, std %.4f\n", c, side, "RGB"[c%3], ch.Mean, ch.StdDev)
	}
}

const maxOverlapLines = 20

func printOverlap(w io.Writer, matches []fingerprint.Match, train, test []dataset.Pair) {
	if len(matches) == 0 {
		fmt.Fprintln(w, "No test faces found in the train split.")
		return
	}
	fmt.Fprintf(w, "Test faces also in the train split: %d\n", len(matches))
	for i, m := range matches {
		if i == maxOverlapLines {
			fmt.Fprintf(w, "  ... and %d more\n", len(matches)-i)
			break
		}
		fmt.Fprintf(w, "  %s ~ %s (distance %d)\n", test[m.TestIndex].Path(m.TestFace), train[m.TrainIndex].Path(m.TrainFace), m.Distance)
	}
}
