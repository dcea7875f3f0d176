package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/shipbatch/internal/rates"
)

var (
	rateUnit    string
	rateService string
)

var rateCmd = &cobra.Command{
	Use:   "rate <weight>",
	Short: "Price a package on one or every service",
	Args:  cobra.ExactArgs(1),
	RunE:  runRate,
}

var pricingCmd = &cobra.Command{
	Use:   "pricing",
	Short: "Print the pricing table",
	Args:  cobra.NoArgs,
	RunE:  runPricing,
}

func init() {
	rateCmd.Flags().StringVar(&rateUnit, "unit", "oz", "weight unit: oz or lb")
	rateCmd.Flags().StringVar(&rateService, "service", "", "ground or priority; empty prices every service")
}

func runRate(cmd *cobra.Command, args []string) error {
	weight, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("weight %q is not a number", args[0])
	}
	if rateUnit != "oz" && rateUnit != "lb" {
		return fmt.Errorf("unit must be oz or lb, got %q", rateUnit)
	}
	weightOz := rates.NormalizeWeight(weight, rateUnit)
	out := cmd.OutOrStdout()

	if rateService != "" {
		svc, ok := rates.ParseService(rateService)
		if !ok {
			return fmt.Errorf("unknown service %q", rateService)
		}
		q := rates.Rate(weightOz, svc)
		if jsonOutput {
			return printJSON(out, q)
		}
		if !q.Available {
			fmt.Fprintf(out, "%s: unavailable (%s)\n", svc, q.Error)
			return nil
		}
		fmt.Fprintf(out, "%s: %s, %s\n", svc, q.Rate.Format(), q.EstimatedDelivery)
		return nil
	}

	set := rates.AllRates(weightOz)
	if jsonOutput {
		return printJSON(out, set)
	}
	fmt.Fprintf(out, "%g oz (%s lb)\n", set.Weight, set.WeightLb)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, q := range set.Rates {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", q.ServiceType, q.Rate.Format(), q.EstimatedDelivery)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if set.Cheapest == nil {
		fmt.Fprintln(out, "no service can carry this weight")
	}
	return nil
}

func runPricing(cmd *cobra.Command, args []string) error {
	table := rates.Table()
	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, table)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	services := []struct {
		name  rates.Service
		table rates.ServiceTable
	}{
		{rates.Ground, table.Ground},
		{rates.Priority, table.Priority},
	}
	for _, s := range services {
		fmt.Fprintf(tw, "%s\tmax %s\t%s\n", s.name, s.table.MaxWeight, s.table.EstimatedDelivery)
		for _, t := range s.table.Tiers {
			fmt.Fprintf(tw, "\tup to %s\t%s\n", t.UpTo, t.Price)
		}
	}
	return tw.Flush()
}
