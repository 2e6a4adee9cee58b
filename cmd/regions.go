package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"terminy/appointment"
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "List voivodeships with their NFZ province codes.",
	Long: `List the sixteen voivodeships accepted by --region.

Any of the printed columns (code, slug, or name) can be used as a region value.`,
	Example: `
  # List all regions
  terminy regions
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeRegions(os.Stdout)
	},
}

func writeRegions(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tSLUG\tNAME")
	for _, region := range appointment.Regions() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", region.Code, region.Slug, region.Name)
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(regionsCmd)
}
