package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pocketbase/pocketbase"
	"github.com/spf13/cobra"

	"quotebuilder/collections"
	"quotebuilder/handlers"
	"quotebuilder/services"
)

func registerCommands(app *pocketbase.PocketBase) {
	app.RootCmd.AddCommand(
		seedCatalogCmd(app),
		quoteSummaryCmd(app),
	)
}

// seedCatalogCmd implements 'seed-catalog'.
func seedCatalogCmd(app *pocketbase.PocketBase) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-catalog",
		Short: "Create collections and load the starter materials catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			collections.Setup(app)
			if err := collections.Seed(app); err != nil {
				return fmt.Errorf("seed catalog: %w", err)
			}
			if err := collections.MigrateQuotes(app); err != nil {
				return fmt.Errorf("migrate quotes: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "catalog ready")
			return nil
		},
	}
}

// quoteSummaryCmd implements 'quote-summary <quoteId>'.
func quoteSummaryCmd(app *pocketbase.PocketBase) *cobra.Command {
	return &cobra.Command{
		Use:   "quote-summary <quoteId>",
		Short: "Print a quote's tasks, totals and payment schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collections.Setup(app)
			view, err := handlers.LoadQuoteView(app, args[0])
			if err != nil {
				return err
			}
			return printQuoteSummary(cmd.OutOrStdout(), view)
		},
	}
}

func printQuoteSummary(out io.Writer, view handlers.QuoteView) error {
	fmt.Fprintf(out, "%s (%s)\n\n", view.Title, view.StatusLabel)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tTask\tTimeframe\tCost\tPayment")
	for i, t := range view.Tasks {
		payment := "-"
		if t.PaymentAmount != nil {
			payment = services.FormatCurrency(*t.PaymentAmount)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, t.Title,
			services.FormatTimeframe(t.Days()),
			services.FormatCurrency(services.TaskTotal(t)),
			payment,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	c := view.Combined
	fmt.Fprintf(out, "\nMaterials: %s\n", services.FormatCurrency(c.TotalMaterialsCost))
	fmt.Fprintf(out, "Labor:     %s\n", services.FormatCurrency(c.TotalLaborCost))
	fmt.Fprintf(out, "Total:     %s over %s\n", services.FormatCurrency(c.TotalCost), services.FormatTimeframe(c.TotalDays))
	fmt.Fprintf(out, "Payments:  %s\n", services.FormatCurrency(c.TotalPaymentAmount))
	if len(view.MissingPayments) > 0 {
		fmt.Fprintf(out, "%d task(s) still need a payment amount before submitting\n", len(view.MissingPayments))
	}
	return nil
}
