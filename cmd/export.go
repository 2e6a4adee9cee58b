package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"terminy/appointment"
	"terminy/geo"
	"terminy/output"
	"terminy/storage"
)

var (
	exportFormat    string
	exportMode      string
	exportOutput    string
	exportRegion    string
	exportRank      bool
	exportLatitude  float64
	exportLongitude float64
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored appointments from SQLite to CSV/Excel",
	Long: `Export stored appointments from SQLite.

Modes:
- raw: export each stored appointment row
- facility: export per-facility aggregates (services, earliest date, waiting patients, nearest distance)

With --rank, rows are ordered by distance, then first available date. Distances
need a location from --lat/--lon or location.* in the config, and geocode
facility addresses through the geocoder and its SQLite cache.

Output format can be selected explicitly via --format or inferred from --output extension.`,
	Example: `
  # Export all rows to CSV
  terminy export --mode raw --output ./terminy.csv

  # Export one region to Excel
  terminy export --region opolskie --output ./opolskie.xlsx

  # Facility summary ranked by distance from Kielce
  terminy export --mode facility --rank --lat 50.8661 --lon 20.6286 --output ./placowki.xlsx
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := exportFormat
		if strings.TrimSpace(format) == "" {
			format = detectExportFormat(exportOutput)
		}

		regionSlug := ""
		if strings.TrimSpace(exportRegion) != "" {
			region, err := resolveRegion(exportRegion)
			if err != nil {
				return err
			}
			regionSlug = region.Slug
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var list []appointment.Ranked
		if exportRank {
			location, err := flagLocation(cmd.Flags().Changed("lat"), cmd.Flags().Changed("lon"), exportLatitude, exportLongitude)
			if err != nil {
				return err
			}
			a, err := newApp(cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			stored, err := a.store.ListAppointments(regionSlug)
			if err != nil {
				return err
			}
			if location == nil {
				location = geo.NewStaticLocation(cfg.Location.Latitude, cfg.Location.Longitude).Point
			}
			list = appointment.Join(stored, a.resolver.Resolve(cmd.Context(), location, stored))
			appointment.Sort(list)
		} else {
			store, err := storage.OpenSQLite(cfg.Storage.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			stored, err := store.ListAppointments(regionSlug)
			if err != nil {
				return err
			}
			list = appointment.Join(stored, nil)
		}

		mode := strings.TrimSpace(strings.ToLower(exportMode))
		switch mode {
		case "", "raw":
			writer, writerErr := output.WriterForFormat(format)
			if writerErr != nil {
				return writerErr
			}
			if err := writer.Write(exportOutput, list); err != nil {
				return err
			}
			fmt.Printf("Export completed. Rows: %d, Mode: raw, Format: %s, File: %s\n", len(list), format, exportOutput)
		case "facility":
			summaries := output.BuildFacilitySummaries(list)
			if err := output.WriteFacilitySummaries(exportOutput, format, summaries); err != nil {
				return err
			}
			fmt.Printf("Export completed. Facilities: %d, Mode: facility, Format: %s, File: %s\n", len(summaries), format, exportOutput)
		default:
			return fmt.Errorf("unsupported export mode: %s (supported: raw, facility)", exportMode)
		}
		return nil
	},
}

func detectExportFormat(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "csv":
		return "csv"
	case "xlsx", "xlsm", "xls":
		return "excel"
	default:
		return "csv"
	}
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportMode, "mode", "raw", "Export mode: raw|facility")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Output format: csv|excel (optional, inferred from output extension)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path")
	exportCmd.Flags().StringVarP(&exportRegion, "region", "r", "", "Only export one region")
	exportCmd.Flags().BoolVar(&exportRank, "rank", false, "Order rows by distance and date")
	exportCmd.Flags().Float64Var(&exportLatitude, "lat", 0, "Latitude to rank by distance (overrides config)")
	exportCmd.Flags().Float64Var(&exportLongitude, "lon", 0, "Longitude to rank by distance (overrides config)")

	_ = exportCmd.MarkFlagRequired("output")
}
