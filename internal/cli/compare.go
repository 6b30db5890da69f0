package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/insightdelivered/finfeex/internal/analysis"
	"github.com/insightdelivered/finfeex/internal/models"
	"github.com/insightdelivered/finfeex/internal/report"
)

func newCompareCmd(e *env) *cobra.Command {
	var (
		txns     int
		txnValue float64
		format   string
	)

	cmd := &cobra.Command{
		Use:   "compare <statement> <statement> [more...]",
		Short: "Compare yearly fee costs across statements",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := analysis.Params{
				EstimatedAnnualTxns: e.cfg.Analysis.EstimatedAnnualTxns,
				AssumedTxnValue:     e.cfg.Analysis.AssumedTxnValue,
				Recipient:           e.cfg.Analysis.Recipient,
			}
			if cmd.Flags().Changed("txns") {
				params.EstimatedAnnualTxns = txns
			}
			if cmd.Flags().Changed("txn-value") {
				params.AssumedTxnValue = txnValue
			}
			if err := params.Validate(); err != nil {
				return err
			}

			svc := e.service(nil)
			records := make([]models.StatementRecord, 0, len(args))
			currency := ""
			for _, path := range args {
				data, err := readStatement(path)
				if err != nil {
					return err
				}
				a, err := svc.AnalyzeFile(path, data, params)
				if err != nil {
					return fmt.Errorf("analysing %s: %w", path, err)
				}
				if currency == "" {
					currency = a.Label.Currency
				}
				records = append(records, models.StatementRecord{Name: statementName(path), Fees: a.Fees})
			}

			cmp, err := report.Compare(records)
			if err != nil {
				return err
			}
			return printComparison(cmd.OutOrStdout(), cmp, currency, format)
		},
	}

	cmd.Flags().IntVar(&txns, "txns", 0, "estimated transactions per year (defaults to config)")
	cmd.Flags().Float64Var(&txnValue, "txn-value", 0, "assumed average transaction value for percentage fees (defaults to config)")
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table, json or yaml")
	return cmd
}

func printComparison(out io.Writer, cmp report.Comparison, currency, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(cmp)
	case "yaml", "yml":
		return yaml.NewEncoder(out).Encode(cmp)
	case formatTable:
	default:
		return fmt.Errorf("unsupported comparison format %q", format)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATEMENT\tTOTAL ANNUAL\tAVERAGE FEE\tFEE COUNT\t")
	for _, s := range cmp.Statements {
		marker := ""
		if s.Name == cmp.Best && cmp.PotentialSavings > 0 {
			marker = "best deal"
		}
		fmt.Fprintf(tw, "%s\t%s%.2f\t%s%.2f\t%d\t%s\n", s.Name, currency, s.TotalAnnualCost, currency, s.AverageFee, s.FeeCount, marker)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if cmp.PotentialSavings > 0 {
		fmt.Fprintf(out, "\nSwitching from %s to %s could save you %s%d per year.\n",
			cmp.Worst, cmp.Best, currency, int64(cmp.PotentialSavings))
	}
	return nil
}
