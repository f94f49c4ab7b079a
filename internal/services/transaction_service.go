package services

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/xemwebe/finql/internal/errors"
	"github.com/xemwebe/finql/internal/logger"
	"github.com/xemwebe/finql/internal/models"
	"github.com/xemwebe/finql/internal/pagination"
)

// transactionService handles the transaction ledger.
type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

// InsertTransaction appends a transaction and returns its id.
func (s *transactionService) InsertTransaction(ctx context.Context, trans *models.Transaction) (int32, error) {
	if err := prepareTransaction(trans); err != nil {
		return 0, err
	}
	trans.ID = 0

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(trans).Error; err != nil {
		return 0, translateError(err, apperrors.ErrTransactionNotFound, nil)
	}
	return trans.ID, nil
}

// GetTransactionByID returns a transaction with its cash currency.
func (s *transactionService) GetTransactionByID(ctx context.Context, id int32) (*models.Transaction, error) {
	var trans models.Transaction
	if err := s.db.WithContext(ctx).Preload("CashCurrency").Take(&trans, id).Error; err != nil {
		return nil, translateError(err, apperrors.ErrTransactionNotFound, nil)
	}
	if err := checkStoredTransaction(&trans); err != nil {
		return nil, err
	}
	return &trans, nil
}

// GetAllTransactions returns every transaction ordered by id.
func (s *transactionService) GetAllTransactions(ctx context.Context) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := s.db.WithContext(ctx).Preload("CashCurrency").Order("id ASC").Find(&transactions).Error; err != nil {
		return nil, translateError(err, nil, nil)
	}
	for i := range transactions {
		if err := checkStoredTransaction(&transactions[i]); err != nil {
			return nil, err
		}
	}
	return transactions, nil
}

// ListTransactions returns one page of transactions ordered by id.
func (s *transactionService) ListTransactions(ctx context.Context, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.WithContext(ctx).Model(&models.Transaction{})
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, translateError(err, nil, nil)
	}

	var transactions []models.Transaction
	if err := base.Preload("CashCurrency").Order("id ASC").Scopes(pagination.Paginate(page)).Find(&transactions).Error; err != nil {
		return nil, translateError(err, nil, nil)
	}
	for i := range transactions {
		if err := checkStoredTransaction(&transactions[i]); err != nil {
			return nil, err
		}
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// UpdateTransaction overwrites every column of a stored transaction.
func (s *transactionService) UpdateTransaction(ctx context.Context, trans *models.Transaction) error {
	if trans.ID == 0 {
		return apperrors.ErrTransactionNotFound
	}
	if err := prepareTransaction(trans); err != nil {
		return err
	}
	if trans.RelatedTrans != nil && *trans.RelatedTrans == trans.ID {
		return apperrors.WithMessage(apperrors.ErrInvalidTransaction, "Transaction cannot refer to itself")
	}

	result := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("id = ?", trans.ID).Updates(map[string]interface{}{
		"trans_type":       trans.Type,
		"asset_id":         trans.AssetID,
		"cash_amount":      trans.CashAmount,
		"cash_currency_id": trans.CashCurrencyID,
		"cash_date":        trans.CashDate,
		"related_trans":    trans.RelatedTrans,
		"position":         trans.Position,
		"note":             trans.Note,
	})
	return translateError(requireRow(result, apperrors.ErrTransactionNotFound), apperrors.ErrTransactionNotFound, nil)
}

// DeleteTransaction removes a transaction. Transactions still referenced by
// others cannot be deleted.
func (s *transactionService) DeleteTransaction(ctx context.Context, id int32) error {
	result := s.db.WithContext(ctx).Delete(&models.Transaction{}, id)
	return translateError(requireRow(result, apperrors.ErrTransactionNotFound), apperrors.ErrTransactionNotFound, nil)
}

// GetRelatedTransactions returns the transactions that refer to id, such as
// the taxes and fees of a trade.
func (s *transactionService) GetRelatedTransactions(ctx context.Context, id int32) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := s.db.WithContext(ctx).Preload("CashCurrency").
		Where("related_trans = ?", id).
		Order("id ASC").
		Find(&transactions).Error
	if err != nil {
		return nil, translateError(err, nil, nil)
	}
	for i := range transactions {
		if err := checkStoredTransaction(&transactions[i]); err != nil {
			return nil, err
		}
	}
	return transactions, nil
}

// GetTransactionChain returns the transaction id followed by the transactions
// reached by following related_trans, stopping at the first repeated id.
func (s *transactionService) GetTransactionChain(ctx context.Context, id int32) ([]models.Transaction, error) {
	var chain []models.Transaction
	seen := make(map[int32]bool)

	next := &id
	for next != nil {
		if seen[*next] {
			logger.Get().Warnw("Cycle in transaction chain", "start", id, "repeated", *next)
			break
		}
		seen[*next] = true

		trans, err := s.GetTransactionByID(ctx, *next)
		if err != nil {
			return nil, err
		}
		chain = append(chain, *trans)
		next = trans.RelatedTrans
	}
	return chain, nil
}

// prepareTransaction validates a transaction before it is written and
// normalizes its cash date to a UTC calendar day.
func prepareTransaction(trans *models.Transaction) error {
	if err := trans.Validate(); err != nil {
		return apperrors.WithMessage(apperrors.ErrInvalidTransaction, err.Error())
	}

	date := time.Time(trans.CashDate)
	if date.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidTransaction, "Cash date is required")
	}
	y, m, d := date.Date()
	trans.CashDate = datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	return nil
}

// checkStoredTransaction reports rows that do not satisfy their type's requirements.
func checkStoredTransaction(trans *models.Transaction) error {
	if err := trans.Validate(); err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidTransaction, err)
	}
	trans.CashDate = datatypes.Date(time.Time(trans.CashDate).UTC())
	return nil
}
