// Package server assembles the HTTP API on top of the storage services.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "github.com/xemwebe/finql/internal/docs" // Import swagger docs
	"github.com/xemwebe/finql/internal/handlers"
	"github.com/xemwebe/finql/internal/logger"
	"github.com/xemwebe/finql/internal/middleware"
	"github.com/xemwebe/finql/internal/services"
	"github.com/xemwebe/finql/internal/validator"
)

// NewRouter wires services and handlers over db and returns the Gin engine
// serving /api/v1. Write routes require apiKey in the X-API-Key header; an
// empty apiKey leaves the API read-only.
func NewRouter(db *gorm.DB, apiKey string) *gin.Engine {
	validator.Register()

	assetService := services.NewAssetService(db)
	quoteService := services.NewQuoteService(db)
	transactionService := services.NewTransactionService(db)
	objectService := services.NewObjectService(db)

	assetHandler := handlers.NewAssetHandler(assetService, quoteService)
	quoteHandler := handlers.NewQuoteHandler(quoteService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	objectHandler := handlers.NewObjectHandler(objectService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+middleware.APIKeyHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/api/health", healthCheck(db))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")

	// Public read routes
	v1.GET("/assets", assetHandler.ListAssets)
	v1.GET("/assets/lookup", assetHandler.LookupAsset)
	v1.GET("/assets/:id", assetHandler.GetAsset)
	v1.GET("/assets/:id/tickers", assetHandler.ListAssetTickers)
	v1.GET("/assets/:id/quotes", quoteHandler.GetQuotesInRange)
	v1.GET("/assets/:id/quotes/latest", quoteHandler.GetLatestQuote)
	v1.GET("/currencies", assetHandler.ListCurrencies)
	v1.GET("/currencies/:iso", assetHandler.GetCurrency)
	v1.GET("/quotes/latest", quoteHandler.GetLatestQuoteByName)
	v1.GET("/fx/rate", quoteHandler.GetFxRate)
	v1.GET("/fx/:iso/latest", quoteHandler.GetLatestFxQuote)
	v1.GET("/tickers", quoteHandler.ListTickers)
	v1.GET("/tickers/:id", quoteHandler.GetTicker)
	v1.GET("/tickers/:id/quotes", quoteHandler.ListTickerQuotes)
	v1.GET("/transactions", transactionHandler.ListTransactions)
	v1.GET("/transactions/:id", transactionHandler.GetTransaction)
	v1.GET("/transactions/:id/chain", transactionHandler.GetTransactionChain)
	v1.GET("/objects/:id", objectHandler.GetObject)

	// Write routes (API key)
	write := v1.Group("")
	write.Use(middleware.APIKeyAuth(apiKey))

	write.POST("/currencies", assetHandler.CreateCurrency)
	write.PUT("/currencies/:iso/rounding-digits", assetHandler.SetRoundingDigits)
	write.POST("/stocks", assetHandler.CreateStock)
	write.PUT("/stocks/:id", assetHandler.UpdateStock)
	write.DELETE("/assets/:id", assetHandler.DeleteAsset)

	write.POST("/tickers", quoteHandler.CreateTicker)
	write.PUT("/tickers/:id", quoteHandler.UpdateTicker)
	write.DELETE("/tickers/:id", quoteHandler.DeleteTicker)

	write.POST("/fx", quoteHandler.CreateFxQuote)
	write.POST("/quotes", quoteHandler.CreateQuote)
	write.POST("/quotes/dedupe", quoteHandler.RemoveDuplicates)
	write.PUT("/quotes/:id", quoteHandler.UpdateQuote)
	write.DELETE("/quotes/:id", quoteHandler.DeleteQuote)

	write.POST("/transactions", transactionHandler.CreateTransaction)
	write.PUT("/transactions/:id", transactionHandler.UpdateTransaction)
	write.DELETE("/transactions/:id", transactionHandler.DeleteTransaction)

	write.PUT("/objects/:id", objectHandler.PutObject)
	write.DELETE("/objects/:id", objectHandler.DeleteObject)

	if apiKey == "" {
		logger.Get().Warn("API_KEY is not set, write routes are disabled")
	}

	return router
}

func healthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			logger.Get().Warnw("Health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
