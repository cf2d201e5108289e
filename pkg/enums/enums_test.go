package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, true},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusProcessing, OrderStatusPending, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
			t.Fatalf("%s -> %s: expected %v got %v", tt.from, tt.to, tt.allowed, got)
		}
	}
	if !OrderStatusDelivered.IsTerminal() || !OrderStatusCancelled.IsTerminal() || OrderStatusShipped.IsTerminal() {
		t.Fatalf("unexpected terminal classification")
	}
}

func TestInventoryStatusFor(t *testing.T) {
	if got := InventoryStatusFor(5, 5); got != InventoryStatusLowStock {
		t.Fatalf("quantity at threshold should be low stock, got %s", got)
	}
	if got := InventoryStatusFor(6, 5); got != InventoryStatusInStock {
		t.Fatalf("quantity above threshold should be in stock, got %s", got)
	}
	if got := InventoryStatusFor(0, 0); got != InventoryStatusLowStock {
		t.Fatalf("zero quantity with zero threshold should be low stock, got %s", got)
	}
}

func TestParseHelpers(t *testing.T) {
	if _, err := ParseOrderStatus("returned"); err == nil {
		t.Fatal("expected unknown order status to fail")
	}
	if got, err := ParsePaymentMethod("cod"); err != nil || got != PaymentMethodCOD {
		t.Fatalf("unexpected payment method parse %v %v", got, err)
	}
	if got, err := ParseDeliveryCompanyCode("ARAMEX"); err != nil || got != DeliveryCompanyCodeAramex {
		t.Fatalf("unexpected company code parse %v %v", got, err)
	}
	if HistoryType("restock").IsValid() {
		t.Fatal("restock is not a history type")
	}
}

func TestParseFoldsCaseAndSpace(t *testing.T) {
	if got, err := ParseOrderStatus(" Shipped "); err != nil || got != OrderStatusShipped {
		t.Fatalf("unexpected order status parse %v %v", got, err)
	}
	if got, err := ParseDeliveryCompanyCode("three_minds"); err != nil || got != DeliveryCompanyCodeThreeMinds {
		t.Fatalf("unexpected company code parse %v %v", got, err)
	}
	if _, err := ParseRole("owner"); err == nil || err.Error() != `invalid role "owner"` {
		t.Fatalf("unexpected role error %v", err)
	}
	statuses := OrderStatuses()
	statuses[0] = "mutated"
	if OrderStatuses()[0] != OrderStatusPending {
		t.Fatal("OrderStatuses leaked its backing slice")
	}
}

func TestHistoryTypeForDelta(t *testing.T) {
	if HistoryTypeForDelta(-2) != HistoryTypeDecrease || HistoryTypeForDelta(3) != HistoryTypeIncrease {
		t.Fatal("unexpected history type for delta")
	}
}
