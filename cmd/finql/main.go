package main

import (
	"os"

	"github.com/xemwebe/finql/internal/commands"
)

// @title           finql API
// @version         1.0
// @description     finql stores assets, currencies, price quotes and a transaction ledger for quantitative portfolio analysis.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key required for write routes.
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
