package service

import (
	"context"
	"testing"

	"storefront/internal/apperr"
	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

func TestPlaceOrderMergesLinesAndStartsPending(t *testing.T) {
	svc := newTestService(t)
	f := seedCatalog(t, svc)
	p := mustProduct(t, svc, f.product("Phone", "199.99", 10))
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, OrderInput{
		UserID: "U1",
		Lines: []model.CartLine{
			{ProductID: p.ProductID, Quantity: 1},
			{ProductID: p.ProductID, Quantity: 2},
		},
		TotalAmount:     decimal.RequireFromString("599.97"),
		ShippingAddress: "1 Main St",
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if order.Status != model.OrderPending {
		t.Fatalf("status = %s, want pending", order.Status)
	}
	if len(order.Lines) != 1 || order.Lines[0].Quantity != 3 {
		t.Fatalf("lines = %+v, want one line of 3", order.Lines)
	}
	if !order.CreatedAt.Equal(testNow) {
		t.Fatalf("createdAt = %v, want %v", order.CreatedAt, testNow)
	}
	if stockOf(t, svc, p.ProductID) != 10 {
		t.Fatal("placing an order must not touch stock")
	}

	got, err := svc.Order(ctx, order.OrderID, "U1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if !got.TotalAmount.Equal(order.TotalAmount) {
		t.Fatalf("total = %s, want %s", got.TotalAmount, order.TotalAmount)
	}
}

func TestPlaceOrderRejectsBadInput(t *testing.T) {
	svc := newTestService(t)
	f := seedCatalog(t, svc)
	p := mustProduct(t, svc, f.product("Phone", "199.99", 10))
	ctx := context.Background()

	valid := OrderInput{
		UserID:          "U1",
		Lines:           []model.CartLine{{ProductID: p.ProductID, Quantity: 1}},
		TotalAmount:     decimal.NewFromInt(10),
		ShippingAddress: "1 Main St",
		PaymentMethod:   "card",
	}
	tests := []struct {
		name string
		edit func(*OrderInput)
		kind apperr.Kind
	}{
		{"no lines", func(in *OrderInput) { in.Lines = nil }, apperr.KindValidation},
		{"zero quantity", func(in *OrderInput) { in.Lines[0].Quantity = 0 }, apperr.KindValidation},
		{"zero total", func(in *OrderInput) { in.TotalAmount = decimal.Zero }, apperr.KindValidation},
		{"no address", func(in *OrderInput) { in.ShippingAddress = "" }, apperr.KindValidation},
		{"unknown product", func(in *OrderInput) { in.Lines[0].ProductID = "NOPE" }, apperr.KindIntegrity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			in.Lines = append([]model.CartLine(nil), valid.Lines...)
			tt.edit(&in)
			_, err := svc.PlaceOrder(ctx, in)
			if got := apperr.KindOf(err); got != tt.kind {
				t.Fatalf("kind = %s, want %s (err %v)", got, tt.kind, err)
			}
		})
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	svc := newTestService(t)
	f := seedCatalog(t, svc)
	p := mustProduct(t, svc, f.product("Phone", "199.99", 10))
	ctx := context.Background()
	order := mustOrder(t, svc, "U1", p.ProductID, 1)

	if _, err := svc.UpdateOrderStatus(ctx, order.OrderID, "U2", "Confirmed"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("other user: got %v, want not found", err)
	}
	if _, err := svc.UpdateOrderStatus(ctx, order.OrderID, "U1", "Lost"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("unknown status: got %v, want validation", err)
	}
	if _, err := svc.UpdateOrderStatus(ctx, order.OrderID, "U1", string(model.OrderDelivered)); !apperr.Is(err, apperr.KindIntegrity) {
		t.Fatalf("pending to delivered: got %v, want integrity", err)
	}

	for _, next := range []model.OrderStatus{model.OrderConfirmed, model.OrderConfirmed, model.OrderShipped, model.OrderDelivered} {
		got, err := svc.UpdateOrderStatus(ctx, order.OrderID, "U1", string(next))
		if err != nil {
			t.Fatalf("move to %s: %v", next, err)
		}
		if got.Status != next {
			t.Fatalf("status = %s, want %s", got.Status, next)
		}
	}
	if _, err := svc.UpdateOrderStatus(ctx, order.OrderID, "U1", string(model.OrderCancelled)); !apperr.Is(err, apperr.KindIntegrity) {
		t.Fatalf("delivered to cancelled: got %v, want integrity", err)
	}
}

func TestOrdersAreScopedToUser(t *testing.T) {
	svc := newTestService(t)
	f := seedCatalog(t, svc)
	p := mustProduct(t, svc, f.product("Phone", "199.99", 10))
	ctx := context.Background()

	mine := mustOrder(t, svc, "U1", p.ProductID, 1)
	mustOrder(t, svc, "U2", p.ProductID, 1)

	orders, err := svc.Orders(ctx, "U1")
	if err != nil {
		t.Fatalf("orders: %v", err)
	}
	if len(orders) != 1 || orders[0].OrderID != mine.OrderID {
		t.Fatalf("orders = %+v, want only %s", orders, mine.OrderID)
	}
	if _, err := svc.Order(ctx, mine.OrderID, "U2"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("foreign order: got %v, want not found", err)
	}
}
