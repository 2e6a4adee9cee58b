package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"terminy/config"
)

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show active configuration values.",
	Long: `Display the currently loaded configuration and the resolved config file path.

This command validates the configuration before printing values.`,
	Example: `
  # Show active configuration
  terminy config show
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			fmt.Println("Invalid config:", err)
			return
		}

		if configPath := viper.ConfigFileUsed(); configPath != "" {
			fmt.Println("Config file loaded from:", configPath)
		} else {
			fmt.Println("No config file loaded, showing defaults.")
		}
		fmt.Println("Configuration:")
		fmt.Printf("api.base_url: %s\n", cfg.API.BaseURL)
		fmt.Printf("api.user_agent: %s\n", cfg.API.UserAgent)
		fmt.Printf("api.timeout: %s\n", cfg.API.Timeout)
		fmt.Printf("api.rate_per_second: %g\n", cfg.API.RatePerSecond)
		fmt.Printf("api.burst: %d\n", cfg.API.Burst)
		fmt.Printf("api.max_retries: %d\n", cfg.API.MaxRetries)
		fmt.Printf("spreadsheet.base_url: %s\n", cfg.Spreadsheet.BaseURL)
		fmt.Printf("spreadsheet.cache_dir: %s\n", cfg.Spreadsheet.CacheDir)
		fmt.Printf("spreadsheet.cache_ttl: %s\n", cfg.Spreadsheet.CacheTTL)
		fmt.Printf("spreadsheet.url_cache_ttl: %s\n", cfg.Spreadsheet.URLCacheTTL)
		fmt.Printf("geocoder.enabled: %t\n", cfg.Geocoder.Enabled)
		fmt.Printf("geocoder.url: %s\n", cfg.Geocoder.URL)
		fmt.Printf("geocoder.rate_per_second: %g\n", cfg.Geocoder.RatePerSecond)
		fmt.Printf("location: %s\n", describeLocation(cfg.Location))
		fmt.Printf("search.source: %s\n", cfg.Search.Source)
		fmt.Printf("storage.path: %s\n", cfg.Storage.Path)
		fmt.Printf("log.level: %s\n", cfg.Log.Level)
		fmt.Printf("log.format: %s\n", cfg.Log.Format)
	},
}

func describeLocation(location config.LocationConfig) string {
	if location.Latitude == nil || location.Longitude == nil {
		return "(not set)"
	}
	return fmt.Sprintf("%.5f, %.5f", *location.Latitude, *location.Longitude)
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
