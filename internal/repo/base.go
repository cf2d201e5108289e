package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	pkgdb "github.com/evacurves/store-backend/pkg/db"
	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Classify maps a persistence failure onto a typed error: missing rows become
// NotFound carrying notFound, unique violations become Conflict, and anything
// else is a retryable StorageError labelled with op.
func Classify(err error, op, notFound string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	if pkgdb.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, op+": already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeStorage, err, op)
}
