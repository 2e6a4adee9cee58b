package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"terminy/appointment"
	"terminy/importer"
	"terminy/storage"
)

var (
	importInputs    []string
	importFormat    string
	importRegion    string
	importDownloads []string
	importReplace   bool
	importForce     bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import NFZ queue spreadsheets into the local SQLite database",
	Long: `Read NFZ queue spreadsheets, map each row to an appointment, and persist results in SQLite.

Local files are given with -i and belong to the region named by --region.
With --download, the current export of each listed region is fetched from
terminyleczenia.nfz.gov.pl (or served from the spreadsheet cache when fresh).
When --format is omitted, format is inferred from each input file extension.

Rows already stored for the same facility, service, place and date are skipped.
Use --replace to drop the stored rows of a region before importing it.`,
	Example: `
  # Import a downloaded export
  terminy import -i ./opolskie.xlsx --region opolskie

  # Import a CSV conversion of the sheet
  terminy import -i ./opolskie.csv --format csv --region 08

  # Download and import two regions, replacing what was stored
  terminy import --download mazowieckie --download 06 --replace

  # Bypass the spreadsheet cache
  terminy import --download opolskie --force
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(importInputs) == 0 && len(importDownloads) == 0 {
			return fmt.Errorf("nothing to import: use --input or --download")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		if len(importInputs) > 0 {
			region, err := resolveRegion(importRegion)
			if err != nil {
				return err
			}
			result, err := importer.Run(importInputs, importFormat, region)
			if err != nil {
				return err
			}
			inserted, err := persistRegion(a.store, region, result.Appointments, importReplace)
			if err != nil {
				return err
			}
			fmt.Printf("Import completed. Region: %s, Data: %s, Files: %d, Rows read: %d, Rows mapped: %d, Rows skipped: %d, Rows persisted: %d\n",
				region.Slug,
				fallbackText(result.DataDate, "-"),
				result.FilesProcessed,
				result.RowsRead,
				result.RowsMapped,
				result.RowsSkipped,
				inserted,
			)
		}

		regions, err := resolveRegions(importDownloads)
		if err != nil {
			return err
		}
		for _, region := range regions {
			sheet, err := downloadSheet(cmd.Context(), a.fetcher, region, importForce)
			if err != nil {
				return err
			}
			inserted, err := persistRegion(a.store, region, sheet.Appointments, importReplace)
			if err != nil {
				return err
			}
			fmt.Printf("Download completed. Region: %s, Data: %s, Rows read: %d, Rows mapped: %d, Rows skipped: %d, Rows persisted: %d\n",
				region.Slug,
				fallbackText(sheet.DataDate(), "-"),
				sheet.RowsRead,
				len(sheet.Appointments),
				sheet.RowsSkipped,
				inserted,
			)
		}
		return nil
	},
}

func downloadSheet(ctx context.Context, fetcher importer.SheetFetcher, region appointment.Region, force bool) (*importer.SheetResult, error) {
	payload, err := fetcher.Fetch(ctx, region, force)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", region.Slug, err)
	}
	rows, err := importer.ReadPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", region.Slug, err)
	}
	sheet, err := importer.MapSheet(rows, region.Slug)
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", region.Slug, err)
	}
	return sheet, nil
}

func persistRegion(store *storage.SQLiteStore, region appointment.Region, list []appointment.Appointment, replace bool) (int, error) {
	if replace {
		removed, err := store.DeleteRegion(region.Slug)
		if err != nil {
			return 0, err
		}
		if removed > 0 {
			fmt.Printf("Removed %d stored rows of %s\n", removed, region.Slug)
		}
	}
	return store.InsertAppointments(list)
}

func resolveRegion(value string) (appointment.Region, error) {
	if strings.TrimSpace(value) == "" {
		return appointment.Region{}, fmt.Errorf("--region is required (see: terminy regions)")
	}
	region, ok := appointment.LookupRegion(value)
	if !ok {
		return appointment.Region{}, fmt.Errorf("unknown region %q (see: terminy regions)", value)
	}
	return region, nil
}

// resolveRegions looks up every value and drops repeats.
func resolveRegions(values []string) ([]appointment.Region, error) {
	seen := make(map[string]bool, len(values))
	out := make([]appointment.Region, 0, len(values))
	for _, value := range values {
		region, err := resolveRegion(value)
		if err != nil {
			return nil, err
		}
		if seen[region.Code] {
			continue
		}
		seen[region.Code] = true
		out = append(out, region)
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringArrayVarP(&importInputs, "input", "i", nil, "Input file path (repeatable)")
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "Input format: xlsx|excel|csv (optional, inferred from extension when omitted)")
	importCmd.Flags().StringVarP(&importRegion, "region", "r", "", "Region of the --input files: code, slug, or name")
	importCmd.Flags().StringArrayVarP(&importDownloads, "download", "d", nil, "Region to download and import (repeatable)")
	importCmd.Flags().BoolVar(&importReplace, "replace", false, "Delete stored rows of each imported region first")
	importCmd.Flags().BoolVar(&importForce, "force", false, "Download even when the cached spreadsheet is fresh")
}
