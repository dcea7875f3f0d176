// Command batchctl inspects shipment batch files and prices packages
// offline, using the same ingest and rate engines as the server.
package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/shipbatch/internal/logging"
)

var (
	logLevel   string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:           "batchctl",
	Short:         "Inspect shipment batches and price packages",
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.SetupWriter(cmd.ErrOrStderr(), logLevel, "text")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of text")
	rootCmd.AddCommand(ingestCmd, rateCmd, pricingCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
