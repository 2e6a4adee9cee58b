package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"terminy/appointment"
	"terminy/download"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear downloaded spreadsheets.",
	Long: `Downloaded voivodeship spreadsheets are kept in spreadsheet.cache_dir and
reused while younger than spreadsheet.cache_ttl.`,
	Example: `
  # Show cached regions
  terminy cache list

  # Drop one region
  terminy cache clear opolskie

  # Drop everything
  terminy cache clear
`,
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached spreadsheets and their age.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cache, err := download.NewFileCache(cfg.Spreadsheet.CacheDir)
		if err != nil {
			return err
		}
		fmt.Println("Cache directory:", cache.Dir())
		return writeCacheTable(os.Stdout, cache, cfg.Spreadsheet.CacheTTL)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [region...]",
	Short: "Delete cached spreadsheets.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cache, err := download.NewFileCache(cfg.Spreadsheet.CacheDir)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			removed, err := cache.Clear()
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d cached files from %s\n", removed, cache.Dir())
			return nil
		}

		regions, err := resolveRegions(args)
		if err != nil {
			return err
		}
		for _, region := range regions {
			if err := cache.Delete(region.Slug); err != nil {
				return err
			}
			fmt.Printf("Removed cached spreadsheet of %s\n", region.Slug)
		}
		return nil
	},
}

func writeCacheTable(out io.Writer, cache *download.FileCache, ttl time.Duration) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REGION\tUPDATED\tFRESH")
	for _, region := range appointment.Regions() {
		updated, ok := cache.LastUpdate(region.Slug)
		if !ok || !cache.Exists(region.Slug) {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\n", region.Slug, updated.Local().Format(time.DateTime), cache.IsFresh(region.Slug, ttl))
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
