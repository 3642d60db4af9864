package commands

import (
	"fmt"
	"os"
	"time"

	"beanscout-backend/lib/catalog"
	configsqlite "beanscout-backend/lib/configutil/sqlite"
	"beanscout-backend/lib/pagecache"
	"beanscout-backend/lib/serviceutil"
	"beanscout-backend/lib/textutil"
	"beanscout-backend/services/catalogstore"
	"beanscout-backend/services/catalogstore/db"
	"beanscout-backend/services/pipeline"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	scrapeDb    *string
	scrapeCache *string
	scrapeName  *string
)

func init() {
	scrapeDb = scrapeCmd.Flags().String("db", "catalog.db", "The database to write scrape results to.")
	scrapeCache = scrapeCmd.Flags().String("cache", ".cache/beanscout", "The page cache directory.")
	scrapeName = scrapeCmd.Flags().String("name", "", "The roaster's display name, defaults to the url.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <url> [--db <path/to/output.db>]",
	Short: "Runs the full scraping pipeline for one roaster and writes to a database.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := *scrapeName
		if name == "" {
			name = args[0]
		}
		roaster := catalog.Roaster{
			Name:       name,
			Slug:       textutil.Slugify(name),
			WebsiteUrl: args[0],
		}

		database, err := configsqlite.Struct{File: *scrapeDb}.OpenDB(db.Schema)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()

		cache, err := pagecache.Open(*scrapeCache, 0)
		if err != nil {
			serviceutil.Fatal("failed to open page cache", err)
		}
		defer cache.Close()

		svc := pipeline.NewService(newClient(), cache, catalogstore.NewStore(database), pipeline.Options{
			BatchDelay: time.Second,
		})

		t1 := time.Now()
		stats, err := svc.ScrapeRoaster(cmd.Context(), roaster)
		if err != nil {
			serviceutil.Fatal("scrape run failed", err)
		}
		t2 := time.Now()

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Discovered", "Extracted", "Enriched", "Uploaded", "Errors", "Seconds"})
		t.AppendRow(table.Row{
			stats.Discovered,
			stats.Extracted,
			stats.Enriched,
			stats.Uploaded,
			stats.Errors,
			fmt.Sprintf("%.1f", t2.Sub(t1).Seconds()),
		})
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
