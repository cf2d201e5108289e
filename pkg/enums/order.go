package enums

// OrderStatus is where an order is in fulfilment.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderStatuses = lower("order status",
	OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled)

// Forward moves only; cancellation is allowed until delivery.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
}

func (o OrderStatus) String() string { return string(o) }
func (o OrderStatus) IsValid() bool  { return orderStatuses.has(o) }

func ParseOrderStatus(raw string) (OrderStatus, error) { return orderStatuses.parse(raw) }

func OrderStatuses() []OrderStatus { return orderStatuses.all() }

func (o OrderStatus) IsTerminal() bool {
	return len(orderTransitions[o]) == 0
}

func (o OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[o] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentMethod is how the buyer pays. Card is recorded only; no charge is
// taken.
type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodCOD  PaymentMethod = "cod"
)

var paymentMethods = lower("payment method", PaymentMethodCard, PaymentMethodCOD)

func (p PaymentMethod) String() string { return string(p) }
func (p PaymentMethod) IsValid() bool  { return paymentMethods.has(p) }

func ParsePaymentMethod(raw string) (PaymentMethod, error) { return paymentMethods.parse(raw) }

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

var paymentStatuses = lower("payment status", PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed)

func (p PaymentStatus) String() string { return string(p) }
func (p PaymentStatus) IsValid() bool  { return paymentStatuses.has(p) }

func ParsePaymentStatus(raw string) (PaymentStatus, error) { return paymentStatuses.parse(raw) }
