package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	apperrors "github.com/xemwebe/finql/internal/errors"
	"github.com/xemwebe/finql/internal/models"
	"github.com/xemwebe/finql/internal/pagination"
	"github.com/xemwebe/finql/internal/services"
)

// TransactionHandler handles the transaction ledger.
type TransactionHandler struct {
	transactionService services.TransactionServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// TransactionRequest represents the request payload for creating or updating
// a transaction. CashDate is a calendar day (YYYY-MM-DD).
type TransactionRequest struct {
	Type           models.TransactionType `json:"type" binding:"required,transaction_type"`
	AssetID        *int32                 `json:"asset_id" binding:"omitempty,gt=0"`
	CashAmount     *float64               `json:"cash_amount" binding:"required"`
	CashCurrencyID int32                  `json:"cash_currency_id" binding:"required,gt=0"`
	CashDate       string                 `json:"cash_date" binding:"required"`
	RelatedTrans   *int32                 `json:"related_trans" binding:"omitempty,gt=0"`
	Position       *float64               `json:"position"`
	Note           *string                `json:"note" binding:"omitempty,max=1000"`
}

func (r TransactionRequest) toTransaction() (*models.Transaction, error) {
	date, err := parseDate(r.CashDate)
	if err != nil {
		return nil, err
	}
	return &models.Transaction{
		Type:           r.Type,
		AssetID:        r.AssetID,
		CashAmount:     *r.CashAmount,
		CashCurrencyID: r.CashCurrencyID,
		CashDate:       datatypes.Date(date),
		RelatedTrans:   r.RelatedTrans,
		Position:       r.Position,
		Note:           r.Note,
	}, nil
}

// TransactionResponse is the wire form of a transaction with its cash date
// rendered as a calendar day.
type TransactionResponse struct {
	ID           int32                  `json:"id"`
	Type         models.TransactionType `json:"type"`
	AssetID      *int32                 `json:"asset_id,omitempty"`
	CashAmount   float64                `json:"cash_amount"`
	CashCurrency models.Currency        `json:"cash_currency"`
	CashDate     string                 `json:"cash_date"`
	RelatedTrans *int32                 `json:"related_trans,omitempty"`
	Position     *float64               `json:"position,omitempty"`
	Note         *string                `json:"note,omitempty"`
}

func newTransactionResponse(t *models.Transaction) TransactionResponse {
	currency := t.CashCurrency
	if currency.ID == 0 {
		currency.ID = t.CashCurrencyID
	}
	return TransactionResponse{
		ID:           t.ID,
		Type:         t.Type,
		AssetID:      t.AssetID,
		CashAmount:   t.CashAmount,
		CashCurrency: currency,
		CashDate:     time.Time(t.CashDate).Format(dateLayout),
		RelatedTrans: t.RelatedTrans,
		Position:     t.Position,
		Note:         t.Note,
	}
}

func newTransactionResponses(transactions []models.Transaction) []TransactionResponse {
	resp := make([]TransactionResponse, 0, len(transactions))
	for i := range transactions {
		resp = append(resp, newTransactionResponse(&transactions[i]))
	}
	return resp
}

// ListTransactions returns one page of the ledger ordered by id.
// @Summary     List transactions
// @Description Get one page of the ledger ordered by ID
// @Tags        transactions
// @Produce     json
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page"
// @Success     200 {object} pagination.PageResponse[TransactionResponse] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.ListTransactions(c.Request.Context(), page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.PageResponse[TransactionResponse]{
		Data:       newTransactionResponses(result.Data),
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
	})
}

// GetTransaction returns a single transaction.
// @Summary     Get transaction by ID
// @Description Get a single transaction
// @Tags        transactions
// @Produce     json
// @Param       id path int true "Transaction ID"
// @Success     200 {object} map[string]TransactionResponse "Transaction details"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	trans, err := h.transactionService.GetTransactionByID(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": newTransactionResponse(trans)})
}

// GetTransactionChain returns a transaction followed by the transactions it
// refers to, and the transactions that refer to it.
// @Summary     Get transaction chain
// @Description Get a transaction, the transactions it refers to, and those referring to it
// @Tags        transactions
// @Produce     json
// @Param       id path int true "Transaction ID"
// @Success     200 {object} map[string][]TransactionResponse "Chain and related transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id}/chain [get]
func (h *TransactionHandler) GetTransactionChain(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	chain, err := h.transactionService.GetTransactionChain(ctx, id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	related, err := h.transactionService.GetRelatedTransactions(ctx, id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"chain":   newTransactionResponses(chain),
		"related": newTransactionResponses(related),
	})
}

// CreateTransaction appends a transaction to the ledger.
// @Summary     Create transaction
// @Description Append a transaction to the ledger
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body TransactionRequest true "Transaction details"
// @Success     201 {object} map[string]TransactionResponse "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Unknown asset, currency or related transaction"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Writes disabled"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	trans, err := req.toTransaction()
	if err != nil {
		respondWithError(c, err)
		return
	}

	if _, err := h.transactionService.InsertTransaction(c.Request.Context(), trans); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": newTransactionResponse(trans)})
}

// UpdateTransaction overwrites a stored transaction.
// @Summary     Update transaction
// @Description Overwrite a stored transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path int true "Transaction ID"
// @Param       request body TransactionRequest true "Transaction details"
// @Success     200 {object} map[string]TransactionResponse "Transaction updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     409 {object} ErrorResponse "Unknown asset, currency or related transaction"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Writes disabled"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	trans, err := req.toTransaction()
	if err != nil {
		respondWithError(c, err)
		return
	}

	trans.ID = id
	if err := h.transactionService.UpdateTransaction(c.Request.Context(), trans); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": newTransactionResponse(trans)})
}

// DeleteTransaction removes a transaction that no other transaction refers to.
// @Summary     Delete transaction
// @Description Delete a transaction no other transaction refers to
// @Tags        transactions
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path int true "Transaction ID"
// @Success     200 {object} map[string]string "Transaction deleted"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     409 {object} ErrorResponse "Transaction still referenced"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Writes disabled"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(c.Request.Context(), id); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}
