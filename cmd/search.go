package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"terminy/appointment"
	"terminy/geo"
	"terminy/internal/timeutil"
	"terminy/output"
	"terminy/search"
)

var (
	searchRegion    string
	searchBenefit   string
	searchLocality  string
	searchUrgent    bool
	searchPages     int
	searchLatitude  float64
	searchLongitude float64
	searchSource    string
	searchOutput    string
	searchFormat    string
	searchSave      bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search appointment queues in one voivodeship.",
	Long: fmt.Sprintf(`Search the earliest available appointments in a voivodeship.

Results are shown %d at a time, the same way the web UI reveals them while
scrolling. --pages controls how many of those pages are loaded; 0 loads all.
Results are ordered by distance when a location is known (from --lat/--lon
or location.* in the config), then by first available date. Without
--region the voivodeship nearest to that location is searched.`, search.DisplayPageSize),
	Example: `
  # Cardiology in Mazowieckie
  terminy search --region mazowieckie --benefit kardiolog

  # Urgent cases in Kraków, three pages, saved to Excel
  terminy search --region 06 --benefit ortopedi --locality KRAKÓW --urgent --pages 3 --output ./wyniki.xlsx

  # Use the spreadsheet export instead of the API and store the rows
  terminy search --region opolskie --benefit okulist --source sheet --save
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		location, err := flagLocation(cmd.Flags().Changed("lat"), cmd.Flags().Changed("lon"), searchLatitude, searchLongitude)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, appOptions{Source: searchSource})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		region, nearest, err := regionOrNearest(searchRegion, a.userLocation(location))
		if err != nil {
			return err
		}
		if nearest {
			fmt.Printf("Region: %s (nearest to your location)\n", region.Name)
		}

		orchestrator := a.orchestrator(location)
		snapshot, err := runSearch(ctx, orchestrator, searchQuery{
			Region:   region.Code,
			Benefit:  searchBenefit,
			Locality: searchLocality,
			Urgent:   searchUrgent,
			Pages:    searchPages,
		})
		if err != nil {
			return errors.New(search.Message(err))
		}

		if err := writeResultsTable(os.Stdout, snapshot); err != nil {
			return err
		}

		if searchSave {
			inserted, err := a.store.InsertAppointments(appointment.Unjoin(snapshot.Appointments))
			if err != nil {
				return err
			}
			fmt.Printf("Saved %d new rows to %s\n", inserted, cfg.Storage.Path)
		}

		if strings.TrimSpace(searchOutput) != "" {
			format := searchFormat
			if strings.TrimSpace(format) == "" {
				format = detectExportFormat(searchOutput)
			}
			writer, err := output.WriterForFormat(format)
			if err != nil {
				return err
			}
			if err := writer.Write(searchOutput, snapshot.Appointments); err != nil {
				return err
			}
			fmt.Printf("Wrote %d rows to %s\n", len(snapshot.Appointments), searchOutput)
		}
		return nil
	},
}

type searchQuery struct {
	Region   string
	Benefit  string
	Locality string
	Urgent   bool
	// Pages is the number of display pages to reveal; zero or less reveals all.
	Pages int
}

// runSearch drives an orchestrator the way a scrolling list does: every
// further page is requested with the last shown row as the anchor.
func runSearch(ctx context.Context, orchestrator *search.Orchestrator, query searchQuery) (search.Snapshot, error) {
	if err := orchestrator.SelectRegion(ctx, query.Region); err != nil {
		return search.Snapshot{}, err
	}
	orchestrator.SetBenefit(query.Benefit)
	orchestrator.SetLocality(query.Locality)
	orchestrator.SetUrgent(query.Urgent)

	if err := orchestrator.Search(ctx); err != nil {
		return orchestrator.Snapshot(), err
	}

	snapshot := orchestrator.Snapshot()
	for loaded := 1; query.Pages <= 0 || loaded < query.Pages; loaded++ {
		if !snapshot.HasMoreResults || len(snapshot.Appointments) == 0 {
			break
		}
		anchor := snapshot.Appointments[len(snapshot.Appointments)-1].ID
		ok, err := orchestrator.LoadMoreIfNeeded(ctx, anchor)
		if err != nil {
			return orchestrator.Snapshot(), err
		}
		snapshot = orchestrator.Snapshot()
		if !ok {
			break
		}
	}
	return snapshot, nil
}

// regionOrNearest resolves --region, or picks the voivodeship nearest to the
// user when the flag is empty. nearest reports whether the fallback was used.
func regionOrNearest(value string, location *geo.Point) (appointment.Region, bool, error) {
	if strings.TrimSpace(value) != "" {
		region, err := resolveRegion(value)
		return region, false, err
	}
	if location == nil {
		return appointment.Region{}, false, errors.New("--region is required when no location is known (use --lat/--lon or location.* in the config)")
	}
	return appointment.NearestRegion(location.Latitude, location.Longitude), true, nil
}

// flagLocation turns --lat/--lon into a point. Both flags must be given
// together.
func flagLocation(latSet, lonSet bool, latitude, longitude float64) (*geo.Point, error) {
	if !latSet && !lonSet {
		return nil, nil
	}
	if latSet != lonSet {
		return nil, fmt.Errorf("--lat and --lon must be used together")
	}
	point := geo.Point{Latitude: latitude, Longitude: longitude}
	if !point.Valid() {
		return nil, fmt.Errorf("invalid location %s", point)
	}
	return &point, nil
}

func writeResultsTable(out io.Writer, snapshot search.Snapshot) error {
	if len(snapshot.Appointments) == 0 {
		_, err := fmt.Fprintln(out, "Brak wyników")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDATE\tDAYS\tWAITING\tFACILITY\tLOCATION\tSERVICE\tKM\tPHONE")
	now := time.Now()
	for i, item := range snapshot.Appointments {
		days := "-"
		if n, ok := timeutil.DaysUntil(item.FirstAvailableDate, now); ok {
			days = fmt.Sprintf("%d", n)
		}
		km := "-"
		if item.Distance != nil {
			km = fmt.Sprintf("%.1f", *item.Distance)
		}
		waiting := "-"
		if item.WaitingCount != nil {
			waiting = fmt.Sprintf("%d", *item.WaitingCount)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1,
			fallbackText(item.FirstAvailableDate, "-"),
			days,
			waiting,
			item.FacilityName,
			item.Location,
			item.ServiceName,
			km,
			fallbackText(item.Phone, "-"),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	total := "?"
	if snapshot.Total != nil {
		total = fmt.Sprintf("%d", *snapshot.Total)
	}
	_, err := fmt.Fprintf(out, "Shown: %d, Total: %s, Waiting: %d, More: %t\n",
		len(snapshot.Appointments), total, snapshot.WaitingCount, snapshot.HasMoreResults)
	return err
}

func fallbackText(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVarP(&searchRegion, "region", "r", "", "Voivodeship code or slug (default: nearest to your location)")
	searchCmd.Flags().StringVarP(&searchBenefit, "benefit", "b", "", "Service name filter (see: terminy benefits)")
	searchCmd.Flags().StringVarP(&searchLocality, "locality", "l", "", "Locality filter")
	searchCmd.Flags().BoolVar(&searchUrgent, "urgent", false, "Search urgent instead of stable cases")
	searchCmd.Flags().IntVarP(&searchPages, "pages", "p", 1, "Display pages to load, 0 for all")
	searchCmd.Flags().Float64Var(&searchLatitude, "lat", 0, "Latitude to rank by distance (overrides config)")
	searchCmd.Flags().Float64Var(&searchLongitude, "lon", 0, "Longitude to rank by distance (overrides config)")
	searchCmd.Flags().StringVar(&searchSource, "source", "", "Data source: api|sheet (default from config)")
	searchCmd.Flags().StringVarP(&searchOutput, "output", "o", "", "Also write the results to a CSV/Excel file")
	searchCmd.Flags().StringVarP(&searchFormat, "format", "f", "", "Output format: csv|excel (optional, inferred from output extension)")
	searchCmd.Flags().BoolVar(&searchSave, "save", false, "Store the shown rows in the local database")

}
