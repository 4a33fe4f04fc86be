package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/in-your-face/internal/config"
	"github.com/kozaktomas/in-your-face/internal/database"
	"github.com/kozaktomas/in-your-face/internal/database/postgres"
	"github.com/kozaktomas/in-your-face/internal/dataset"
	"github.com/kozaktomas/in-your-face/internal/preprocess"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Manage cleaned datasets stored in PostgreSQL",
	Long:  `Commands for listing, inspecting and deleting datasets saved by "clean --save".`,
}

var datasetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored datasets",
	Args:  cobra.NoArgs,
	RunE:  runDatasetsList,
}

var datasetsShowCmd = &cobra.Command{
	Use:   "show <id|name>",
	Short: "Show value statistics of a stored dataset",
	Args:  cobra.ExactArgs(1),
	RunE:  runDatasetsShow,
}

var datasetsNearestCmd = &cobra.Command{
	Use:   "nearest <id|name> <index>",
	Short: "Find train samples that look most like a given sample",
	Long: `Build an in-memory HNSW index over the cleaned train samples of a stored dataset
and list the samples closest to one sample of the chosen split.

Examples:
  # Train samples nearest to test sample 12
  in-your-face datasets nearest lfw-32 12 --split test

  # Ten nearest neighbours of train sample 0 (itself excluded)
  in-your-face datasets nearest lfw-32 0 --limit 10`,
	Args: cobra.ExactArgs(2),
	RunE: runDatasetsNearest,
}

var datasetsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored dataset and all its samples",
	Long: `Delete a stored dataset together with its train and test samples.

Example:
  in-your-face datasets delete 5f0c6a1e-8d7b-4a43-9a52-0f3f5c1d2e4b --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runDatasetsDelete,
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
	datasetsCmd.AddCommand(datasetsListCmd)
	datasetsCmd.AddCommand(datasetsShowCmd)
	datasetsCmd.AddCommand(datasetsNearestCmd)
	datasetsCmd.AddCommand(datasetsDeleteCmd)

	datasetsNearestCmd.Flags().String("split", string(database.SplitTrain), "Split of the query sample: train or test")
	datasetsNearestCmd.Flags().Int("limit", 5, "Number of neighbours to show")

	datasetsDeleteCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
}

// openRepository connects to PostgreSQL and returns the dataset repository
// together with a close function.
func openRepository(ctx context.Context) (*postgres.DatasetRepository, func(), error) {
	cfg := config.Load()
	pool, err := postgres.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	return postgres.NewDatasetRepository(pool), func() { pool.Close() }, nil
}

func runDatasetsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	repo, closeFn, err := openRepository(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	datasets, err := repo.ListDatasets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list datasets: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(datasets) == 0 {
		fmt.Fprintln(out, "No datasets found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSIZE\tINTERPOLATION\tTRAIN\tTEST\tCREATED")
	fmt.Fprintln(w, "--\t----\t----\t-------------\t-----\t----\t-------")
	for _, ds := range datasets {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%d\t%s\n", ds.ID, ds.Name, ds.DownsampleSize, ds.Interpolation,
			ds.TrainCount, ds.TestCount, ds.CreatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()

	fmt.Fprintf(out, "\nTotal: %d datasets\n", len(datasets))
	return nil
}

func runDatasetsShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	repo, closeFn, err := openRepository(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	ds, err := findDataset(ctx, repo, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Dataset: %s (%s)\n", ds.Name, ds.ID)
	fmt.Fprintf(out, "Samples: %dx%dx%d, %s\n\n", ds.DownsampleSize, ds.DownsampleSize, preprocess.Channels, ds.Interpolation)

	for _, split := range []database.Split{database.SplitTrain, database.SplitTest} {
		rows, err := repo.LoadSplit(ctx, ds.ID, split)
		if err != nil {
			return fmt.Errorf("failed to load %s split: %w", split, err)
		}
		cleaned := database.FromStored(ds.DownsampleSize, rows)
		same := 0
		for _, l := range cleaned.Labels {
			if l == dataset.LabelSame {
				same++
			}
		}
		printSummary(out, string(split), preprocess.Stats(cleaned.Samples))
		fmt.Fprintf(out, "  labels: %d same, %d different\n", same, len(cleaned.Labels)-same)
	}
	return nil
}

// findDataset looks a dataset up by ID or, failing to parse one, by name.
func findDataset(ctx context.Context, repo database.DatasetReader, ref string) (*database.StoredDataset, error) {
	var (
		ds  *database.StoredDataset
		err error
	)
	if _, parseErr := uuid.Parse(ref); parseErr == nil {
		ds, err = repo.GetDataset(ctx, ref)
	} else {
		ds, err = repo.GetDatasetByName(ctx, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	if ds == nil {
		return nil, fmt.Errorf("%w: %s", database.ErrNotFound, ref)
	}
	return ds, nil
}

func runDatasetsNearest(cmd *cobra.Command, args []string) error {
	split := database.Split(mustGetString(cmd, "split"))
	if !split.Valid() {
		return fmt.Errorf("unknown split %q", split)
	}
	limit := mustGetInt(cmd, "limit")
	if limit < 1 {
		return fmt.Errorf("--limit must be positive, got %d", limit)
	}
	queryIndex, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid sample index %q: %w", args[1], err)
	}

	ctx := context.Background()
	repo, closeFn, err := openRepository(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	ds, err := findDataset(ctx, repo, args[0])
	if err != nil {
		return err
	}

	train, err := repo.LoadSplit(ctx, ds.ID, database.SplitTrain)
	if err != nil {
		return fmt.Errorf("failed to load train split: %w", err)
	}
	queries := train
	if split == database.SplitTest {
		if queries, err = repo.LoadSplit(ctx, ds.ID, database.SplitTest); err != nil {
			return fmt.Errorf("failed to load test split: %w", err)
		}
	}
	if queryIndex < 0 || queryIndex >= len(queries) {
		return fmt.Errorf("sample index %d out of range, %s split has %d samples", queryIndex, split, len(queries))
	}
	query := queries[queryIndex]

	index := database.NewSampleIndex()
	if err := index.Build(train); err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	var exclude []int
	if split == database.SplitTrain {
		exclude = append(exclude, queryIndex)
	}
	neighbors, err := index.Search(query.Pixels, limit, exclude...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Query: %s sample %d (label %d)\n\n", split, query.Index, query.Label)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRAIN INDEX\tLABEL\tDISTANCE")
	fmt.Fprintln(w, "-----------\t-----\t--------")
	for _, n := range neighbors {
		fmt.Fprintf(w, "%d\t%d\t%.4f\n", n.Sample.Index, n.Sample.Label, n.Distance)
	}
	return w.Flush()
}

func runDatasetsDelete(cmd *cobra.Command, args []string) error {
	id := args[0]
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid dataset ID %q: %w", id, err)
	}

	if !mustGetBool(cmd, "yes") && !confirmAction(fmt.Sprintf("Delete dataset %s? [y/N] ", id)) {
		fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
		return nil
	}

	ctx := context.Background()
	repo, closeFn, err := openRepository(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := repo.DeleteDataset(ctx, id); err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted dataset %s\n", id)
	return nil
}

func confirmAction(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
