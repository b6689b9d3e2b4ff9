package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the admin entry point for the warehouse and the catalog.
var rootCmd = &cobra.Command{
	Use:          "dwhctl",
	Short:        "dwhctl administers the order warehouse.",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(countersCmd)
	rootCmd.AddCommand(catalogCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
