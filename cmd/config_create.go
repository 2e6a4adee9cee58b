package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a configuration file from the example template.",
	Long: `Create a new configuration file from the same example template used by "config edit".

If a configuration file is already in use, no new file is written. The template
queries the NFZ API; set location.latitude and location.longitude to rank
results by distance.`,
	Example: `
  # Create default config at $HOME/.terminy.yaml
  terminy config create
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return saveDefaultConfig()
	},
}

func saveDefaultConfig() error {
	configPath, err := resolveConfigEditPath(cfgFile, viper.ConfigFileUsed())
	if err != nil {
		return err
	}

	created, err := ensureConfigFileWithTemplate(configPath)
	if err != nil {
		return err
	}
	return writeConfigCreated(os.Stdout, configPath, created)
}

func writeConfigCreated(out io.Writer, path string, created bool) error {
	if !created {
		_, err := fmt.Fprintf(out, "Config file already exists at: %s\n", path)
		return err
	}
	_, err := fmt.Fprintf(out, `New config file created at: %s
Next steps:
  terminy regions                      list voivodeship codes
  terminy config edit                  set location.latitude/longitude to rank by distance
  terminy search --region <code> -b <service>
`, path)
	return err
}

func init() {
	configCmd.AddCommand(configCreateCmd)
}
