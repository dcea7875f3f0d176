package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/shipbatch/internal/address"
	"github.com/JonMunkholm/shipbatch/internal/config"
	"github.com/JonMunkholm/shipbatch/internal/core"
)

var (
	ingestMaxSize  int64
	ingestValidate bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Parse a CSV or XLSX batch file and report its rows",
	Long: `Reads a batch file the way the upload endpoint does and prints the
detected convention, skipped and invalid rows, and every parsed shipment.
With --validate each recipient is also checked by the local validators.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Int64Var(&ingestMaxSize, "max-size", 10<<20, "maximum file size in bytes, 0 for none")
	ingestCmd.Flags().BoolVar(&ingestValidate, "validate", false, "run local address validation on every row")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := core.ReadUpload(f, ingestMaxSize)
	if err != nil {
		return err
	}

	b, report, err := core.Ingest(ctx, data, filepath.Base(args[0]))
	if err != nil {
		return fmt.Errorf("%s: %w", core.MapError(err).Code, err)
	}

	if ingestValidate {
		chain := address.New(config.AddressConfig{Provider: "mock"})
		for i := range b.Rows {
			r := &b.Rows[i]
			if r.Validation.Status == address.StatusInvalid {
				continue
			}
			res := chain.Validate(ctx, r.Recipient)
			r.Validation.Status = res.Status
			r.Validation.Messages = res.Messages
		}
		b.Recompute()
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, map[string]any{"report": report, "batch": b})
	}

	fmt.Fprintf(out, "convention: %s\nrecords: %d  rows: %d  skipped: %d  invalid: %d\n",
		report.Convention, report.Records, len(b.Rows), report.Skipped, b.Stats.InvalidRows)
	if len(report.Unrecognized) > 0 {
		fmt.Fprintf(out, "unrecognized columns: %s\n", strings.Join(report.Unrecognized, ", "))
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tNAME\tCITY\tSTATE\tZIP\tOZ\tSTATUS\tMESSAGES")
	for _, r := range b.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%g\t%s\t%s\n",
			r.RowNumber, r.Recipient.Name, r.Recipient.City, r.Recipient.State, r.Recipient.Zip,
			r.Package.Weight, r.Validation.Status, strings.Join(r.Validation.Messages, "; "))
	}
	return tw.Flush()
}
