package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/in-your-face/internal/architecture"
	"github.com/kozaktomas/in-your-face/internal/preprocess"
)

var archCmd = &cobra.Command{
	Use:   "arch",
	Short: "Classifier architecture presets",
	Long:  `Commands for listing and inspecting the classifier architectures that consume cleaned datasets.`,
}

var archListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in architectures",
	Args:  cobra.NoArgs,
	RunE:  runArchList,
}

var archShowCmd = &cobra.Command{
	Use:   "show <name|file>",
	Short: "Show layers and inferred shapes of an architecture",
	Long: `Print every layer of an architecture with its output shape and parameter count
for a cleaned sample of the given size.

The argument is either a preset name or a YAML file with an "architectures" list.

Examples:
  in-your-face arch show chicago
  in-your-face arch show seattle --size 48
  in-your-face arch show ./my-archs.yaml --filters 64 --kernel 5`,
	Args: cobra.ExactArgs(1),
	RunE: runArchShow,
}

func init() {
	rootCmd.AddCommand(archCmd)
	archCmd.AddCommand(archListCmd)
	archCmd.AddCommand(archShowCmd)

	archShowCmd.Flags().Int("size", preprocess.DefaultDownsampleSize, "Input side length in pixels")
	archShowCmd.Flags().Int("filters", 0, "Override feature maps of every convolution (0 = keep)")
	archShowCmd.Flags().Int("kernel", 0, "Override kernel size of every convolution (0 = keep)")
}

func runArchList(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFORMAT\tLOSS\tLAYERS\tDESCRIPTION")
	fmt.Fprintln(w, "----\t------\t----\t------\t-----------")
	for _, a := range architecture.Presets() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", a.Name, a.DataFormat, a.Loss, len(a.Layers), a.Description)
	}
	return w.Flush()
}

func runArchShow(cmd *cobra.Command, args []string) error {
	size := mustGetInt(cmd, "size")
	filters := mustGetInt(cmd, "filters")
	kernel := mustGetInt(cmd, "kernel")

	archs, err := resolveArchitectures(args[0])
	if err != nil {
		return err
	}

	for i, a := range archs {
		if filters > 0 || kernel > 0 {
			a = a.WithConvolutions(filters, kernel)
			if err := a.Validate(); err != nil {
				return err
			}
		}
		if i > 0 {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		if err := printArchitecture(cmd.OutOrStdout(), a, size); err != nil {
			return err
		}
	}
	return nil
}

// resolveArchitectures treats arg as a preset name first, then as a file.
func resolveArchitectures(arg string) ([]architecture.Architecture, error) {
	if a, ok := architecture.Get(arg); ok {
		return []architecture.Architecture{a}, nil
	}
	if _, err := os.Stat(arg); err != nil {
		return nil, fmt.Errorf("unknown architecture %q (presets: %s)", arg, strings.Join(architecture.Names(), ", "))
	}
	return architecture.LoadFile(arg)
}

func printArchitecture(out io.Writer, a architecture.Architecture, size int) error {
	shapes, err := a.Shapes(size, preprocess.Channels)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: %s\n", a.Name, a.Description)
	fmt.Fprintf(out, "Data format: %s, loss: %s, optimizer: %s\n\n", a.DataFormat, a.Loss, a.Optimizer)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tLAYER\tDETAILS\tOUTPUT\tPARAMS")
	fmt.Fprintln(w, "-\t-----\t-------\t------\t------")
	total := 0
	for i, s := range shapes {
		fmt.Fprintf(w, "%d\t%s\t%s\t%v\t%d\n", i+1, s.Layer.Type, layerDetails(s.Layer), s.Output, s.Params)
		total += s.Params
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nTotal params: %d\n", total)
	return nil
}

func layerDetails(l architecture.Layer) string {
	var parts []string
	switch l.Type {
	case architecture.LayerConv2D:
		parts = append(parts, fmt.Sprintf("%d %dx%d %s", l.Filters, l.Kernel, l.Kernel, l.Padding))
	case architecture.LayerPool:
		parts = append(parts, fmt.Sprintf("%s %dx%d", l.Pool, l.PoolSize, l.PoolSize))
	case architecture.LayerDropout:
		parts = append(parts, fmt.Sprintf("rate %.2f", l.Rate))
	case architecture.LayerDense:
		parts = append(parts, fmt.Sprintf("%d units", l.Units))
	}
	if l.Activation != "" {
		parts = append(parts, l.Activation)
	}
	if l.MaxNorm > 0 {
		parts = append(parts, fmt.Sprintf("max_norm %.1f", l.MaxNorm))
	}
	return strings.Join(parts, ", ")
}
