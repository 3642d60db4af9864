package commands

import (
	"os"
	"strings"

	"beanscout-backend/lib/platform"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(detectCmd)
}

var detectCmd = &cobra.Command{
	Use:   "detect <url>",
	Short: "Detects the e-commerce platform a storefront runs on.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		detection := platform.Detect(cmd.Context(), newClient(), args[0])

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Platform", "Product API Paths"})
		t.AppendRow(table.Row{
			detection.Platform,
			strings.Join(detection.ProductAPIPaths, "\n"),
		})
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
