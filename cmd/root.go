/*
Copyright © 2025 riad@rsworld.eu

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"terminy/config"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "terminy",
	Short: "Find the earliest NFZ appointment queues near you.",
	Long: `
**********************************************
*                 TERMINY                    *
**********************************************

This CLI searches the public NFZ "Terminy Leczenia" data for the earliest
available appointments in a voivodeship, ranks them by date and distance,
and keeps imported snapshots in a local SQLite database.

Data sources:
- API: the NFZ queues API, paged 25 records at a time
- Sheet: the per-voivodeship .xlsx export published on terminyleczenia.nfz.gov.pl
`,
	Example: `
  # Create configuration file
  terminy config create

  # List voivodeships and their codes
  terminy regions

  # Find eye clinics in Opolskie, sorted by first available date
  terminy search --region opolskie --benefit "PORADNIA OKULISTYCZNA"

  # Rank results by distance from a fixed point
  terminy search --region 07 --benefit ortopedi --lat 52.2297 --lon 21.0122

  # Download and store the Mazowieckie spreadsheet
  terminy import --download mazowieckie

  # Export stored rows per facility
  terminy export --mode facility --output ./placowki.xlsx

  # Open the browser UI
  terminy serve
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	config.SetDefaults()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "configFile", "", "Config file override (default discovery: $HOME/.terminy.yaml, then ./.terminy.yaml)")
}

// loadConfig validates the active configuration for commands that talk to
// remote services or the database.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadAndValidate()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".terminy" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".terminy")
	}

	viper.SetEnvPrefix("terminy")
	viper.AutomaticEnv()

	// Defaults cover every key, so running without a file is fine.
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "No config file found, using defaults. Create one with: terminy config create")
	}
}
