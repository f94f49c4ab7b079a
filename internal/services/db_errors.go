package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/xemwebe/finql/internal/database"
	apperrors "github.com/xemwebe/finql/internal/errors"
)

// translateError maps a database error onto the application error taxonomy.
// notFound and conflict are the entity-specific sentinels for missing rows and
// uniqueness violations; nil falls back to the generic sentinels.
func translateError(err error, notFound, conflict *apperrors.AppError) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if notFound == nil {
			notFound = apperrors.ErrNotFound
		}
		return notFound
	case database.IsUniqueViolation(err):
		if conflict == nil {
			conflict = apperrors.ErrConflict
		}
		return apperrors.Wrap(conflict, err)
	case database.IsForeignKeyViolation(err):
		return apperrors.Wrap(apperrors.ErrConstraintViolated, err)
	case database.IsNotNullViolation(err):
		return apperrors.Wrap(apperrors.ErrInvalidInput, err)
	default:
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
}

// requireRow turns an update or delete that touched nothing into notFound.
func requireRow(result *gorm.DB, notFound *apperrors.AppError) error {
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound
	}
	return nil
}
