package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe <archive-id>...",
	Short: "Fill in missing page dimensions",
	Long: `Reads the stored image files of the given archives and fills in any
missing width/height values.

Examples:
  foliumctl probe 42
  foliumctl probe 42 43 44`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	a, cleanup, err := setupApp()
	if err != nil {
		return err
	}
	defer cleanup()

	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid archive id %q", arg)
		}

		if err := a.metadata.ProbeDimensions(cmd.Context(), id); err != nil {
			return fmt.Errorf("probe archive %d: %w", id, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Probed archive %d\n", id)
	}

	return nil
}
