package services

import (
	"context"
	"encoding/json"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/xemwebe/finql/internal/errors"
	"github.com/xemwebe/finql/internal/models"
)

// objectService stores arbitrary JSON documents by key. Documents are not
// validated against any shape.
type objectService struct {
	db *gorm.DB
}

// NewObjectService creates a new ObjectServicer.
func NewObjectService(db *gorm.DB) ObjectServicer {
	return &objectService{db: db}
}

// StoreObject JSON-encodes v and stores it under a new id.
func (s *objectService) StoreObject(ctx context.Context, id string, v interface{}) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Object id is required")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, err)
	}

	obj := models.Object{ID: id, Object: datatypes.JSON(raw)}
	if err := s.db.WithContext(ctx).Create(&obj).Error; err != nil {
		return translateError(err, apperrors.ErrObjectNotFound, apperrors.ErrDuplicateObject)
	}
	return nil
}

// PutRawObject stores raw under id, replacing any existing document. The
// bytes are kept exactly as given.
func (s *objectService) PutRawObject(ctx context.Context, id string, raw []byte) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Object id is required")
	}
	if !json.Valid(raw) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Object is not valid JSON")
	}

	obj := models.Object{ID: id, Object: datatypes.JSON(raw)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"object"}),
	}).Create(&obj).Error
	return translateError(err, apperrors.ErrObjectNotFound, apperrors.ErrDuplicateObject)
}

// GetObject decodes the document stored under id into dest.
func (s *objectService) GetObject(ctx context.Context, id string, dest interface{}) error {
	raw, err := s.GetRawObject(ctx, id)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetRawObject returns the document stored under id as it was written.
func (s *objectService) GetRawObject(ctx context.Context, id string) ([]byte, error) {
	var obj models.Object
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&obj).Error; err != nil {
		return nil, translateError(err, apperrors.ErrObjectNotFound, nil)
	}
	return []byte(obj.Object), nil
}

// DeleteObject removes the document stored under id.
func (s *objectService) DeleteObject(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Object{})
	return translateError(requireRow(result, apperrors.ErrObjectNotFound), apperrors.ErrObjectNotFound, nil)
}
