package repo

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify(nil, "op", "missing"))

	err := Classify(fmt.Errorf("wrapped: %w", gorm.ErrRecordNotFound), "db: load entry", "inventory record not found")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Equal(t, "inventory record not found", pkgerrors.As(err).Message())

	err = Classify(errors.New("UNIQUE constraint failed: orders.order_number"), "db: insert order", "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	err = Classify(errors.New("connection reset"), "db: insert order", "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStorage))
	assert.True(t, pkgerrors.MetadataFor(pkgerrors.CodeOf(err)).Retryable)

	typed := pkgerrors.New(pkgerrors.CodeInsufficient, "Insufficient stock")
	assert.Same(t, typed, Classify(typed, "op", "missing"))
}
