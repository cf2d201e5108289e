package orders

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/evacurves/store-backend/internal/inventory"
	"github.com/evacurves/store-backend/pkg/currency"
	"github.com/evacurves/store-backend/pkg/db/models"
	"github.com/evacurves/store-backend/pkg/enums"
	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
	"github.com/evacurves/store-backend/pkg/logger"
	"github.com/evacurves/store-backend/pkg/pagination"
	"github.com/evacurves/store-backend/pkg/types"
)

const orderNumberAttempts = 3

var (
	mobileRe = regexp.MustCompile(`^\+[0-9]{1,4}[0-9]{9,10}$`)

	// ShippingCountries are the ISO codes the store ships to.
	ShippingCountries = map[string]struct{}{
		"JO": {}, "SA": {}, "AE": {}, "KW": {}, "QA": {}, "BH": {},
		"OM": {}, "EG": {}, "IQ": {}, "LB": {}, "PS": {},
	}

	validate = validator.New()
)

type txRunner interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderMetrics interface {
	IncOrderCreated(paymentMethod string)
	IncReservationFailure(code string)
	IncStockMutation(historyType string)
}

// Service places orders and drives their status.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput, actorID uuid.UUID) (*OrderDTO, error)
	ListOrders(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
	ListCustomerOrders(ctx context.Context, params pagination.Params, userID uuid.UUID, status *enums.OrderStatus) (*OrderList, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*OrderDTO, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string, actorID uuid.UUID) (*OrderDTO, error)
}

// ServiceParams wires the orders service.
type ServiceParams struct {
	DB      txRunner
	Repo    Repository
	Logger  *logger.Logger
	Metrics orderMetrics
	Now     func() time.Time
}

type service struct {
	db      txRunner
	repo    Repository
	logg    *logger.Logger
	metrics orderMetrics
	now     func() time.Time
}

// NewService builds the orders service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	repository := params.Repo
	if repository == nil {
		repository = NewRepository(params.DB.DB())
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:      params.DB,
		repo:    repository,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

type checkout struct {
	currency string
	method   enums.PaymentMethod
	rate     decimal.Decimal
}

// validateCreate checks the request shape before any stock is touched.
func validateCreate(input *CreateOrderInput) (*checkout, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: product id is required", i+1))
		}
		if item.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: quantity must be at least 1", i+1))
		}
	}

	c := &input.CustomerInfo
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Email = strings.TrimSpace(c.Email)
	c.Mobile = strings.TrimSpace(c.Mobile)
	if c.FirstName == "" || c.LastName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer first and last name are required")
	}
	if c.Email == "" || c.Mobile == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email and mobile number are required")
	}
	if err := validate.Var(c.Email, "email"); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid customer email")
	}
	if !mobileRe.MatchString(c.Mobile) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid mobile number")
	}

	a := &input.ShippingAddress
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	if a.Street == "" || a.City == "" || a.Country == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "complete shipping address is required")
	}
	if _, ok := ShippingCountries[a.Country]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping country not supported").
			WithDetails(map[string]any{"country": a.Country})
	}

	code := currency.Normalize(input.Currency)
	if code == "" {
		code = currency.Base
	}
	rate, err := currency.Rate(currency.Base, code)
	if err != nil {
		return nil, err
	}

	method, err := enums.ParsePaymentMethod(strings.ToLower(strings.TrimSpace(input.PaymentMethod)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}
	return &checkout{currency: code, method: method, rate: rate}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput, actorID uuid.UUID) (*OrderDTO, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	co, err := validateCreate(&input)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		stock := inventory.NewStockTx(tx, s.metrics)
		items, total, err := s.reserve(ctx, stock, input.Items, co, actorID)
		if err != nil {
			return err
		}
		if err := stock.Settle(ctx); err != nil {
			return err
		}

		order = &models.Order{
			UserID:          &actorID,
			Items:           items,
			TotalAmount:     total,
			Currency:        co.currency,
			ExchangeRate:    co.rate,
			ShippingAddress: input.ShippingAddress,
			CustomerInfo:    input.CustomerInfo,
			PaymentMethod:   co.method,
			PaymentStatus:   paymentStatusFor(co.method),
			Status:          enums.OrderStatusPending,
		}
		return s.insert(ctx, tx, order)
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncReservationFailure(string(pkgerrors.CodeOf(err)))
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncOrderCreated(string(co.method))
	}
	ctx = s.logg.WithOrderNumber(ctx, order.OrderNumber)
	s.logg.Info(s.logg.WithField(ctx, "total", order.TotalAmount.String()+" "+order.Currency), "order created")

	dto := FromModel(*order)
	return &dto, nil
}

// reserve locks every product in id order, then decrements each line's
// variant in request order. The first failure aborts the transaction.
func (s *service) reserve(ctx context.Context, stock *inventory.StockTx, lines []ItemInput, co *checkout, actorID uuid.UUID) (types.OrderItemList, decimal.Decimal, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	for _, id := range inventory.SortedIDs(ids) {
		if err := stock.Ledger.LockProduct(ctx, id); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product not found: %s", id))
			}
			return nil, decimal.Zero, err
		}
	}
	products, err := stock.Ledger.LoadProducts(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, err
	}

	items := make(types.OrderItemList, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product not found: %s", line.ProductID))
		}
		entry, err := resolveVariant(ctx, stock.Ledger, &product, line)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if entry.Quantity < line.Quantity {
			return nil, decimal.Zero, insufficient(&product, entry, line)
		}
		before := entry.Quantity
		if err := stock.Ledger.Decrement(ctx, entry.ID, line.Quantity); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeInsufficient) {
				return nil, decimal.Zero, insufficient(&product, entry, line)
			}
			return nil, decimal.Zero, err
		}
		if err := stock.RecordChange(ctx, entry, enums.HistoryTypeDecrease, before, before-line.Quantity, inventory.ReasonOrderPlaced, &actorID); err != nil {
			return nil, decimal.Zero, err
		}

		item := types.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Size:      entry.Size,
			Color:     entry.Color,
			Quantity:  line.Quantity,
			Price:     currency.Apply(product.Price, co.rate, co.currency),
		}
		if len(product.Images) > 0 {
			item.Image = product.Images[0]
		}
		items = append(items, item)
		total = total.Add(item.LineTotal())
	}
	return items, total, nil
}

func resolveVariant(ctx context.Context, ledger *inventory.LedgerRepository, product *models.Product, line ItemInput) (*models.InventoryEntry, error) {
	size := strings.TrimSpace(line.Size)
	color := strings.TrimSpace(line.Color)
	switch {
	case size != "" && color != "":
		entry, err := ledger.GetVariant(ctx, product.ID, size, color)
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("%s is not available in size %s and color %s", product.Name, size, color))
		}
		return entry, err
	case size == "" && color == "":
		entries, err := ledger.Get(ctx, product.ID)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return nil, insufficient(product, nil, line)
		}
		if len(entries) > 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("size and color are required for %s", product.Name))
		}
		return &entries[0], nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size and color must be given together")
	}
}

func insufficient(product *models.Product, entry *models.InventoryEntry, line ItemInput) error {
	details := map[string]any{
		"product_id":   product.ID,
		"product_name": product.Name,
		"requested":    line.Quantity,
		"available":    0,
	}
	if entry != nil {
		details["size"] = entry.Size
		details["color"] = entry.Color
		details["available"] = entry.Quantity
	}
	return pkgerrors.New(pkgerrors.CodeInsufficient, fmt.Sprintf("insufficient stock for %s", product.Name)).
		WithDetails(details)
}

func paymentStatusFor(method enums.PaymentMethod) enums.PaymentStatus {
	if method == enums.PaymentMethodCOD {
		return enums.PaymentStatusPending
	}
	return enums.PaymentStatusCompleted
}

// insert persists the order under a fresh number, retrying inside a savepoint
// when the number collides.
func (s *service) insert(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order.OrderNumber = s.orderNumber()
		err = tx.Transaction(func(stx *gorm.DB) error {
			return s.repo.WithTx(stx).Create(ctx, order)
		})
		if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			return err
		}
		order.ID = uuid.Nil
	}
	return err
}

func (s *service) orderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD%d%s", s.now().UnixMilli(), suffix)
}

func (s *service) ListOrders(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	return s.repo.List(ctx, params, filters)
}

// ListCustomerOrders lists the orders placed by one user.
func (s *service) ListCustomerOrders(ctx context.Context, params pagination.Params, userID uuid.UUID, status *enums.OrderStatus) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return s.repo.List(ctx, params, ListFilters{Status: status, UserID: &userID})
}

func (s *service) GetOrderByNumber(ctx context.Context, orderNumber string) (*OrderDTO, error) {
	orderNumber = strings.ToUpper(strings.TrimSpace(orderNumber))
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	order, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	dto := FromModel(*order)
	return &dto, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(*order)
	return &dto, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string, actorID uuid.UUID) (*OrderDTO, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	next, err := enums.ParseOrderStatus(strings.ToLower(strings.TrimSpace(status)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status")
	}

	var order *models.Order
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == next {
			order = current
			return nil
		}
		if !current.Status.CanTransitionTo(next) {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("cannot move order from %s to %s", current.Status, next))
		}
		if err := repo.TransitionStatus(ctx, id, current.Status, next); err != nil {
			return err
		}
		if next == enums.OrderStatusCancelled {
			if err := s.restoreStock(ctx, tx, current, actorID); err != nil {
				return err
			}
		}
		order, err = repo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderNumber(ctx, order.OrderNumber)
	s.logg.Info(s.logg.WithField(ctx, "status", string(order.Status)), "order status updated")
	dto := FromModel(*order)
	return &dto, nil
}

// restoreStock returns a cancelled order's reserved units to the variants
// they came from. Products or variants deleted since are skipped.
func (s *service) restoreStock(ctx context.Context, tx *gorm.DB, order *models.Order, actorID uuid.UUID) error {
	stock := inventory.NewStockTx(tx, s.metrics)
	ids := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID)
	}
	locked := map[uuid.UUID]bool{}
	for _, id := range inventory.SortedIDs(ids) {
		err := stock.Ledger.LockProduct(ctx, id)
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		locked[id] = true
		stock.Touch(id)
	}

	reason := fmt.Sprintf("Order %s cancelled", order.OrderNumber)
	for _, item := range order.Items {
		if !locked[item.ProductID] {
			continue
		}
		entry, err := stock.Ledger.GetVariant(ctx, item.ProductID, item.Size, item.Color)
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			fields := map[string]any{"product_id": item.ProductID.String(), "size": item.Size, "color": item.Color}
			s.logg.Warn(s.logg.WithFields(ctx, fields), "variant missing while restoring cancelled order stock")
			continue
		}
		if err != nil {
			return err
		}
		before := entry.Quantity
		if err := stock.Ledger.Increment(ctx, entry.ID, item.Quantity); err != nil {
			return err
		}
		if err := stock.RecordChange(ctx, entry, enums.HistoryTypeIncrease, before, before+item.Quantity, reason, &actorID); err != nil {
			return err
		}
	}
	return stock.Settle(ctx)
}
