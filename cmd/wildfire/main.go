// Command wildfire runs the wildfire risk engine service and its offline tools.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "wildfire",
		Short:        "Fire-danger scoring, detection clustering and spread prediction",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(fwiCmd())
	rootCmd.AddCommand(clusterCmd())
	rootCmd.AddCommand(spreadCmd())
	rootCmd.AddCommand(riskCmd())
	rootCmd.AddCommand(ingestCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
