package commands

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xemwebe/finql/internal/models"
	"github.com/xemwebe/finql/internal/services"
)

var transactionsCmd = &cobra.Command{
	Use:   "transactions",
	Short: "Inspect the transaction ledger",
}

var transactionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every transaction",
	Long:  "Print every transaction ordered by id, with amounts rounded to their currency's digits.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbManager, err := openDatabase()
		if err != nil {
			return err
		}
		defer dbManager.Close()

		transactions, err := services.NewTransactionService(dbManager.DB()).GetAllTransactions(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tDATE\tAMOUNT\tCURRENCY\tASSET\tPOSITION\tRELATED")
		for i := range transactions {
			fmt.Fprintln(w, formatTransaction(&transactions[i]))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(transactionsCmd)
	transactionsCmd.AddCommand(transactionsListCmd)
}

func formatTransaction(t *models.Transaction) string {
	currency := t.CashCurrency
	amount := strconv.FormatFloat(currency.Round(t.CashAmount), 'f', int(currency.RoundingDigits), 64)
	return fmt.Sprintf("%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s",
		t.ID,
		t.Type,
		time.Time(t.CashDate).Format("2006-01-02"),
		amount,
		currency.ISOCode,
		optionalInt(t.AssetID),
		optionalFloat(t.Position),
		optionalInt(t.RelatedTrans),
	)
}

func optionalInt(v *int32) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(int(*v))
}

func optionalFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
