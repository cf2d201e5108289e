package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evacurves/store-backend/internal/repo"
	"github.com/evacurves/store-backend/pkg/db/models"
	"github.com/evacurves/store-backend/pkg/enums"
	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
	"github.com/evacurves/store-backend/pkg/pagination"
)

const msgOrderNotFound = "order not found"

type repository struct {
	repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if err := r.DB(ctx).Create(order).Error; err != nil {
		return repo.Classify(err, "db: insert order", msgOrderNotFound)
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, repo.Classify(err, "db: load order", msgOrderNotFound)
	}
	return &order, nil
}

func (r *repository) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	if err := r.DB(ctx).First(&order, "order_number = ?", orderNumber).Error; err != nil {
		return nil, repo.Classify(err, "db: load order", msgOrderNotFound)
	}
	return &order, nil
}

// List pages through orders newest first.
func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	query := r.DB(ctx).Model(&models.Order{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filters.PaymentStatus)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	query, err := pagination.Seek(query, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, repo.Classify(err, "db: list orders", msgOrderNotFound)
	}

	page, next := pagination.Cut(rows, params, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	list := &OrderList{Orders: make([]OrderDTO, 0, len(page)), NextCursor: next}
	for _, o := range page {
		list.Orders = append(list.Orders, FromModel(o))
	}
	return list, nil
}

// TransitionStatus moves the order from one status to another only if it is
// still in from; a lost race is a Conflict.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) error {
	res := r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return repo.Classify(res.Error, "db: update order status", msgOrderNotFound)
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "order status changed concurrently").
			WithDetails(map[string]any{"order_id": id, "expected": from})
	}
	return nil
}

func (r *repository) UpdateDelivery(ctx context.Context, id uuid.UUID, update DeliveryUpdate) error {
	res := r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"delivery_company_id": update.CompanyID,
			"tracking_number":     update.TrackingNumber,
			"delivery_status":     update.DeliveryStatus,
			"updated_at":          time.Now().UTC(),
		})
	if res.Error != nil {
		return repo.Classify(res.Error, "db: update order delivery", msgOrderNotFound)
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, msgOrderNotFound)
	}
	return nil
}
