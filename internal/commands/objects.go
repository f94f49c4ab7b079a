package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/xemwebe/finql/internal/services"
)

var objectsCmd = &cobra.Command{
	Use:   "objects",
	Short: "Read and write stored JSON documents",
}

var objectsPutCmd = &cobra.Command{
	Use:   "put ID FILE",
	Short: "Store the JSON document in FILE under ID",
	Long:  `Store the JSON document in FILE ("-" for stdin) under ID, replacing any existing document.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(cmd, args[1])
		if err != nil {
			return err
		}

		dbManager, err := openDatabase()
		if err != nil {
			return err
		}
		defer dbManager.Close()

		return services.NewObjectService(dbManager.DB()).PutRawObject(cmd.Context(), args[0], raw)
	},
}

var objectsGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Print the JSON document stored under ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbManager, err := openDatabase()
		if err != nil {
			return err
		}
		defer dbManager.Close()

		raw, err := services.NewObjectService(dbManager.DB()).GetRawObject(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(raw)
		return err
	},
}

func init() {
	rootCmd.AddCommand(objectsCmd)
	objectsCmd.AddCommand(objectsPutCmd)
	objectsCmd.AddCommand(objectsGetCmd)
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return raw, nil
}
