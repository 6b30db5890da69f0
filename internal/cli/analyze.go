package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/insightdelivered/finfeex/internal/analysis"
	"github.com/insightdelivered/finfeex/internal/models"
	"github.com/insightdelivered/finfeex/internal/narrative"
	"github.com/insightdelivered/finfeex/internal/writer"
)

const formatTable = "table"

type analyzeFlags struct {
	txns      int
	txnValue  float64
	format    string
	output    string
	recipient string
	label     bool
	email     bool
	summary   bool
}

func newAnalyzeCmd(e *env) *cobra.Command {
	var f analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze <statement.pdf|statement.txt> [more...]",
		Short: "Detect and annualize fees in one or more statements",
		Example: `  # Fee table for a PDF statement
  finfeex analyze statement.pdf

  # Annualize percentage fees assuming 120 card payments of 2500 a year
  finfeex analyze --txns 120 --txn-value 2500 statement.pdf

  # Export as CSV and print the complaint email
  finfeex analyze --format csv --output fees.csv --email --recipient "Card Services" statement.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, e, &f, args)
		},
	}

	cmd.Flags().IntVar(&f.txns, "txns", 0, "estimated transactions per year (0 = unknown; defaults to config)")
	cmd.Flags().Float64Var(&f.txnValue, "txn-value", 0, "assumed average transaction value for percentage fees (defaults to config)")
	cmd.Flags().StringVarP(&f.format, "format", "f", formatTable, "output format: table, csv, json or yaml")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "write the fee export to this file instead of stdout")
	cmd.Flags().StringVar(&f.recipient, "recipient", "", "complaint email recipient (defaults to config)")
	cmd.Flags().BoolVar(&f.label, "label", false, "print the fee label")
	cmd.Flags().BoolVar(&f.email, "email", false, "print the complaint email draft")
	cmd.Flags().BoolVar(&f.summary, "summary", false, "print an AI summary (needs GEMINI_API_KEY)")
	return cmd
}

func runAnalyze(cmd *cobra.Command, e *env, f *analyzeFlags, files []string) error {
	params := analysis.Params{
		EstimatedAnnualTxns: e.cfg.Analysis.EstimatedAnnualTxns,
		AssumedTxnValue:     e.cfg.Analysis.AssumedTxnValue,
		Recipient:           e.cfg.Analysis.Recipient,
	}
	if cmd.Flags().Changed("txns") {
		params.EstimatedAnnualTxns = f.txns
	}
	if cmd.Flags().Changed("txn-value") {
		params.AssumedTxnValue = f.txnValue
	}
	if cmd.Flags().Changed("recipient") {
		params.Recipient = f.recipient
	}
	if err := params.Validate(); err != nil {
		return err
	}

	format := formatTable
	var exportFormat writer.Format
	if !strings.EqualFold(f.format, formatTable) {
		var err error
		if exportFormat, err = writer.ParseFormat(f.format); err != nil {
			return err
		}
		format = string(exportFormat)
	}
	if f.output != "" && len(files) > 1 {
		return fmt.Errorf("--output needs a single input file, got %d", len(files))
	}
	if f.output != "" && format == formatTable {
		return fmt.Errorf("--output needs --format csv, json or yaml")
	}

	svc := e.service(nil)
	out := cmd.OutOrStdout()

	for _, path := range files {
		data, err := readStatement(path)
		if err != nil {
			return err
		}
		a, err := svc.AnalyzeFile(path, data, params)
		if err != nil {
			return fmt.Errorf("analysing %s: %w", path, err)
		}

		switch {
		case format == formatTable:
			if len(files) > 1 {
				fmt.Fprintf(out, "== %s ==\n", statementName(path))
			}
			printFeeTable(out, a)
		case f.output != "":
			if err := writer.WriteToFile(f.output, a.Fees, exportFormat); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d fee line(s) to %s\n", len(a.Fees), f.output)
		default:
			if err := writer.Export(out, a.Fees, exportFormat); err != nil {
				return err
			}
		}

		if f.label {
			fmt.Fprintf(out, "\n%s\n", labelPlain(a.Label))
		}
		if f.email {
			fmt.Fprintf(out, "\n%s\n", a.Complaint)
		}
		if f.summary {
			if err := printSummary(cmd, e, a); err != nil {
				return err
			}
		}
	}
	return nil
}

// printFeeTable writes the fee lines and a total in aligned columns.
func printFeeTable(out io.Writer, a *models.Analysis) {
	if len(a.Fees) == 0 {
		fmt.Fprintln(out, "No fee lines found.")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tTYPE\tVALUE\tFREQUENCY\tANNUAL\tLINE")
	for _, f := range a.Fees {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			f.Category, f.Type, valueText(f), f.Frequency, amountText(a.Label.Currency, f.AnnualCostEstimate), f.Line)
	}
	fmt.Fprintf(tw, "\t\t\t\t%s\tTOTAL (%d fee lines)\n", amountText(a.Label.Currency, &a.Label.TotalAnnualCost), a.Label.FeeCount)
	tw.Flush()
}

// labelPlain renders the label for a terminal, colouring the score.
func labelPlain(l models.Label) string {
	scoreColor := color.New(color.FgGreen, color.Bold)
	switch {
	case l.TransparencyScore < 50:
		scoreColor = color.New(color.FgRed, color.Bold)
	case l.TransparencyScore < 80:
		scoreColor = color.New(color.FgYellow, color.Bold)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Transparency Score: %s\n", scoreColor.Sprintf("%d%%", l.TransparencyScore))
	fmt.Fprintf(&sb, "Total Annual Hidden Cost (estimate): %s%d\n", l.Currency, int64(l.TotalAnnualCost))
	fmt.Fprintf(&sb, "Detected fee lines: %d", l.FeeCount)
	return sb.String()
}

func printSummary(cmd *cobra.Command, e *env, a *models.Analysis) error {
	s, closeFn, err := e.summarizer(cmd.Context())
	if errors.Is(err, narrative.ErrDisabled) {
		e.logger.Warn("Skipping AI summary: set GEMINI_API_KEY to enable it")
		return nil
	}
	if err != nil {
		return err
	}
	defer closeFn()

	summary, err := s.Summarize(cmd.Context(), narrative.BuildPrompt(a.Fees, a.Label))
	if err != nil {
		return fmt.Errorf("AI summary failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", summary)
	return nil
}

func valueText(f models.AnnualizedFee) string {
	if f.Value == nil {
		return "-"
	}
	if f.Type == models.FeePercent {
		return fmt.Sprintf("%g%%", *f.Value)
	}
	return f.Symbol() + fmt.Sprintf("%g", *f.Value)
}

func amountText(currency string, v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%s%.2f", currency, *v)
}
