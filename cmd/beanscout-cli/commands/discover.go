package commands

import (
	"os"

	"beanscout-backend/lib/catalog"
	"beanscout-backend/lib/discover"
	"beanscout-backend/lib/pagecache"
	"beanscout-backend/lib/serviceutil"
	"beanscout-backend/lib/textutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var discoverCache *string

func init() {
	discoverCache = discoverCmd.Flags().String("cache", ".cache/beanscout", "The page cache directory.")
	rootCmd.AddCommand(discoverCmd)
}

var discoverCmd = &cobra.Command{
	Use:   "discover <url>",
	Short: "Lists the product pages discovery finds on a storefront.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cache, err := pagecache.Open(*discoverCache, 0)
		if err != nil {
			serviceutil.Fatal("failed to open page cache", err)
		}
		defer cache.Close()

		roaster := catalog.Roaster{
			Name:       args[0],
			Slug:       textutil.Slugify(args[0]),
			WebsiteUrl: args[0],
		}
		manager := discover.NewManager(newClient(), cache)
		stubs := manager.Discover(cmd.Context(), roaster)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Name", "Slug", "Method", "Url"})
		for _, stub := range stubs {
			t.AppendRow(table.Row{stub.Name, stub.Slug, stub.Method, stub.Url})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
