package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/elefant-tools/elefant-sync/cmd"
)

var rootCmd = &cobra.Command{
	Use:   "elefant-sync",
	Short: "PostgreSQL-to-PostgreSQL schema and data migration tool",
}

func init() {
	rootCmd.AddCommand(cmd.Commands()...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cmd.ExitCode(err))
	}
}
