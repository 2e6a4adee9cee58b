package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"terminy/nfz"
)

var localitiesRegion string

var localitiesCmd = &cobra.Command{
	Use:   "localities <query>",
	Short: "Suggest locality names for the --locality filter.",
	Long: `Look up localities in the NFZ dictionary whose name matches a query.

Use --region to limit the suggestions to one voivodeship.`,
	Example: `
  # Localities starting with "Krak"
  terminy localities krak

  # Only in Opolskie
  terminy localities --region opolskie nysa
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		province := ""
		if strings.TrimSpace(localitiesRegion) != "" {
			region, err := resolveRegion(localitiesRegion)
			if err != nil {
				return err
			}
			province = region.Code
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

		names, err := listLocalities(cmd.Context(), a.client, province, strings.Join(args, " "))
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("Brak wyników")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

type localityFetcher interface {
	FetchLocalities(ctx context.Context, province, name string, page int) (nfz.Page[string], error)
}

func listLocalities(ctx context.Context, client localityFetcher, province, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("locality query is required")
	}
	names, err := nfz.FetchAllPaged(ctx, func(ctx context.Context, page int) (nfz.Page[string], error) {
		return client.FetchLocalities(ctx, province, query, page)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch localities: %w", err)
	}
	return names, nil
}

func init() {
	rootCmd.AddCommand(localitiesCmd)

	localitiesCmd.Flags().StringVarP(&localitiesRegion, "region", "r", "", "Voivodeship code or slug")
}
