package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file.json>...",
	Short: "Import metadata documents",
	Long: `Imports one or more JSON metadata documents: upserts the archive row,
reconciles its sources, images, and tags, and probes missing page
dimensions.

Examples:
  foliumctl import spring-comic.json
  foliumctl import inbox/*.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	a, cleanup, err := setupApp()
	if err != nil {
		return err
	}
	defer cleanup()

	imported := 0
	for _, path := range args {
		id, err := a.importer.ImportFile(cmd.Context(), path)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (archive %d)\n", path, id)
		imported++
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d document(s)\n", imported)
	return nil
}
