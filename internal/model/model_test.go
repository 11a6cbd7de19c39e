package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCartAddMergesLines(t *testing.T) {
	var c Cart
	if err := c.Add("P1", 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.Add("P2", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.Add("P1", 3); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(c.Lines) != 2 || c.Lines[0].Quantity != 5 {
		t.Fatalf("unexpected lines %+v", c.Lines)
	}
	if err := c.Add("P3", 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestCartSetAndRemove(t *testing.T) {
	c := Cart{Lines: []CartLine{{ProductID: "P1", Quantity: 1}, {ProductID: "P2", Quantity: 4}}}
	if err := c.SetQty("P2", 9); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.SetQty("P9", 1); !errors.Is(err, ErrLineNotFound) {
		t.Fatalf("expected ErrLineNotFound, got %v", err)
	}
	if err := c.Remove("P1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(c.Lines) != 1 || c.Lines[0] != (CartLine{ProductID: "P2", Quantity: 9}) {
		t.Fatalf("unexpected lines %+v", c.Lines)
	}
	if err := c.Remove("P1"); !errors.Is(err, ErrLineNotFound) {
		t.Fatalf("expected ErrLineNotFound, got %v", err)
	}
}

func TestOrderTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderPending, OrderConfirmed, true},
		{OrderPending, OrderCancelled, true},
		{OrderPending, OrderShipped, false},
		{OrderConfirmed, OrderShipped, true},
		{OrderConfirmed, OrderCancelled, true},
		{OrderShipped, OrderDelivered, true},
		{OrderShipped, OrderCancelled, false},
		{OrderDelivered, OrderPending, false},
		{OrderCancelled, OrderConfirmed, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
	if OrderStatus("Lost").Valid() {
		t.Fatalf("unknown status reported valid")
	}
}

func TestMoneyIsJSONNumber(t *testing.T) {
	p := Product{ProductID: "P1", Price: decimal.RequireFromString("19.90")}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"price":19.9`) {
		t.Fatalf("price not encoded as a number: %s", data)
	}
}
