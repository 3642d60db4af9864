package commands

import (
	"context"
	"fmt"
	"os"

	"beanscout-backend/lib/fetch"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "beanscout-cli",
	Short: "beanscout-cli inspects and scrapes coffee roaster storefronts.",
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() *resty.Client {
	return fetch.NewClient(fetch.Options{
		RetryCount:        2,
		RequestsPerSecond: 2,
		TracerName:        "beanscout-cli",
	})
}
