package cmd

import "github.com/spf13/cobra"

// Commands returns the export/import/copy subcommands for the root
// cobra.Command to mount.
func Commands() []*cobra.Command {
	return []*cobra.Command{
		newExportCommand(),
		newImportCommand(),
		newCopyCommand(),
	}
}
