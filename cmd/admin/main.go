package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/strideapp/habitsync/cmd/admin/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "habitsync-admin",
		Short: "Administration tool for HabitSync",
		Long:  "CLI tool for inspecting pending records and driving syncs by hand",
	}

	rootCmd.AddCommand(commands.NewPendingCmd())
	rootCmd.AddCommand(commands.NewSyncCmd())
	rootCmd.AddCommand(commands.NewWatchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
