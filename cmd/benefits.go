package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"terminy/nfz"
)

var benefitsAll bool

var benefitsCmd = &cobra.Command{
	Use:   "benefits [query]",
	Short: "Suggest service names for the --benefit filter.",
	Long: fmt.Sprintf(`Look up NFZ service names matching a query.

Queries shorter than %d characters return the built-in list of common services.
With --all, the complete benefit dictionary is downloaded page by page.`, nfz.MinServiceQueryLength),
	Example: `
  # Common services
  terminy benefits

  # Services matching "ortop"
  terminy benefits ortop

  # Full dictionary
  terminy benefits --all
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		var names []string
		if benefitsAll {
			names, err = a.client.FetchAllBenefits(cmd.Context())
		} else {
			names, err = a.client.SearchServiceNames(cmd.Context(), strings.Join(args, " "))
		}
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(benefitsCmd)

	benefitsCmd.Flags().BoolVar(&benefitsAll, "all", false, "Download the complete benefit dictionary")
}
