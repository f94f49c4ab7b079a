package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xemwebe/finql/internal/models"
	"github.com/xemwebe/finql/internal/services"
)

var (
	latestAssetID int32
	latestName    string
	latestFx      string
	latestBefore  string
	fxAt          string
)

var quotesCmd = &cobra.Command{
	Use:   "quotes",
	Short: "Inspect and maintain price quotes",
}

var quotesDedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Remove repeated quotes",
	Long: `Delete every quote for which an older quote of the same ticker with the
same time and price exists. The quote with the lowest id is kept.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbManager, err := openDatabase()
		if err != nil {
			return err
		}
		defer dbManager.Close()

		removed, err := services.NewQuoteService(dbManager.DB()).RemoveDuplicates(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d duplicate quotes\n", removed)
		return nil
	},
}

var quotesLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Print the latest quote at or before a point in time",
	Long: `Print the newest quote of an asset at or before --before (default now).
Exactly one of --asset-id, --name or --fx selects the asset.

Examples:
  finql quotes latest --name "Apple Inc."
  finql quotes latest --asset-id 7 --before 2024-03-01T00:00:00Z
  finql quotes latest --fx USD`,
	Args: cobra.NoArgs,
	RunE: runQuotesLatest,
}

var quotesFxCmd = &cobra.Command{
	Use:   "fx FOREIGN BASE RATE",
	Short: "Store an exchange rate and its inverse",
	Long: `Store RATE as the price of one unit of FOREIGN in BASE at --at (default now),
together with the inverse rate. Missing currencies and tickers are created.

Example:
  finql quotes fx USD EUR 0.92 --at 2024-03-01T16:00:00Z`,
	Args: cobra.ExactArgs(3),
	RunE: runQuotesFx,
}

func init() {
	rootCmd.AddCommand(quotesCmd)
	quotesCmd.AddCommand(quotesDedupeCmd)
	quotesCmd.AddCommand(quotesLatestCmd)
	quotesCmd.AddCommand(quotesFxCmd)

	quotesFxCmd.Flags().StringVar(&fxAt, "at", "", "RFC 3339 time of the rate (default now)")

	quotesLatestCmd.Flags().Int32Var(&latestAssetID, "asset-id", 0, "asset id")
	quotesLatestCmd.Flags().StringVar(&latestName, "name", "", "stock name")
	quotesLatestCmd.Flags().StringVar(&latestFx, "fx", "", "ISO code of a currency")
	quotesLatestCmd.Flags().StringVar(&latestBefore, "before", "", "RFC 3339 cutoff (default now)")
	quotesLatestCmd.MarkFlagsMutuallyExclusive("asset-id", "name", "fx")
	quotesLatestCmd.MarkFlagsOneRequired("asset-id", "name", "fx")
}

// parseTimeFlag parses an RFC 3339 flag value; an empty value yields now.
func parseTimeFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return t.UTC(), nil
}

func runQuotesFx(cmd *cobra.Command, args []string) error {
	rate, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid rate %q: %w", args[2], err)
	}
	at, err := parseTimeFlag("at", fxAt)
	if err != nil {
		return err
	}

	dbManager, err := openDatabase()
	if err != nil {
		return err
	}
	defer dbManager.Close()

	if err := services.NewQuoteService(dbManager.DB()).InsertFxQuote(cmd.Context(), rate, args[0], args[1], at); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stored %s/%s %g and %s/%s %g at %s\n",
		strings.ToUpper(args[0]), strings.ToUpper(args[1]), rate,
		strings.ToUpper(args[1]), strings.ToUpper(args[0]), 1/rate, at.Format(time.RFC3339))
	return nil
}

func runQuotesLatest(cmd *cobra.Command, args []string) error {
	before, err := parseTimeFlag("before", latestBefore)
	if err != nil {
		return err
	}

	dbManager, err := openDatabase()
	if err != nil {
		return err
	}
	defer dbManager.Close()

	svc := services.NewQuoteService(dbManager.DB())
	ctx := cmd.Context()

	var (
		quote    *models.Quote
		currency *models.Currency
	)
	switch {
	case cmd.Flags().Changed("asset-id"):
		quote, currency, err = svc.GetLastQuoteBeforeByID(ctx, latestAssetID, before)
	case latestName != "":
		quote, currency, err = svc.GetLastQuoteBefore(ctx, latestName, before)
	default:
		quote, currency, err = svc.GetLastFxQuoteBefore(ctx, latestFx, before)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%g %s\t(ticker %d, quote %d)\n",
		quote.Time.Format(time.RFC3339), quote.Price, currency.ISOCode, quote.TickerID, quote.ID)
	return nil
}
