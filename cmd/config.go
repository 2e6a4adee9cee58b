package cmd

import "github.com/spf13/cobra"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage terminy configuration file values.",
	Long: `Create, edit, display, and delete the terminy configuration file.

The configuration stores application-wide values:
- api.* (NFZ queues API address, rate limit, retries)
- spreadsheet.* (export page address and local cache)
- geocoder.* and location.* (distance ranking)
- search.source, storage.path, log.*`,
	Example: `
  # Create default config in $HOME/.terminy.yaml
  terminy config create

  # Show active config and source file
  terminy config show

  # Open active config in editor (creates example if missing)
  terminy config edit

  # Delete active config file
  terminy config delete
`,
}

func init() {
	rootCmd.AddCommand(configCmd)
}
