package intent

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNextMissing_PriorityOrder(t *testing.T) {
	var it TradeIntent

	field, missing := NextMissing(it)
	if !missing || field != FieldSymbol {
		t.Fatalf("empty intent should ask for symbol first, got %s (missing=%v)", field, missing)
	}

	it.Symbol = "NVDA"
	if field, _ := NextMissing(it); field != FieldSide {
		t.Errorf("expected side after symbol, got %s", field)
	}

	it.Side = sidePtr(SideBuy)
	if field, _ := NextMissing(it); field != FieldOrderType {
		t.Errorf("expected orderType after side, got %s", field)
	}

	it.OrderType = orderTypePtr(OrderTypeStopLimit)
	if field, _ := NextMissing(it); field != FieldLimitPrice {
		t.Errorf("stop-limit should demand limit price before stop price, got %s", field)
	}

	it.LimitPrice = decimalPtr(decimal.NewFromInt(190))
	if field, _ := NextMissing(it); field != FieldStopPrice {
		t.Errorf("stop-limit should demand stop price next, got %s", field)
	}

	it.StopPrice = decimalPtr(decimal.NewFromInt(185))
	if field, _ := NextMissing(it); field != FieldQuantityOrAmount {
		t.Errorf("expected quantity/amount slot next, got %s", field)
	}

	it.Quantity = int64Ptr(5)
	if field, _ := NextMissing(it); field != FieldTif {
		t.Errorf("expected tif last, got %s", field)
	}

	it.Tif = tifPtr(TifDay)
	if field, missing := NextMissing(it); missing {
		t.Errorf("fully specified intent should have no missing field, got %s", field)
	}
	if !Complete(it) {
		t.Errorf("Complete should report true for fully specified intent")
	}
}

func TestNextMissing_MarketNeverDemandsPrices(t *testing.T) {
	it := TradeIntent{
		Symbol:    "NVDA",
		Side:      sidePtr(SideBuy),
		OrderType: orderTypePtr(OrderTypeMarket),
		Quantity:  int64Ptr(5),
		Tif:       tifPtr(TifDay),
	}

	if field, missing := NextMissing(it); missing {
		t.Fatalf("market order should be complete without prices, got missing %s", field)
	}
}

func TestNextMissing_ConditionalPrices(t *testing.T) {
	base := TradeIntent{
		Symbol:   "NVDA",
		Side:     sidePtr(SideBuy),
		Quantity: int64Ptr(5),
		Tif:      tifPtr(TifDay),
	}

	limitOnly := base
	limitOnly.OrderType = orderTypePtr(OrderTypeLimit)
	if field, _ := NextMissing(limitOnly); field != FieldLimitPrice {
		t.Errorf("limit order should demand limit price, got %s", field)
	}

	stopOnly := base
	stopOnly.OrderType = orderTypePtr(OrderTypeStop)
	if field, _ := NextMissing(stopOnly); field != FieldStopPrice {
		t.Errorf("stop order should demand stop price, got %s", field)
	}
}

func TestNextMissing_Idempotent(t *testing.T) {
	it := TradeIntent{Symbol: "NVDA", Side: sidePtr(SideBuy)}

	first, _ := NextMissing(it)
	second, _ := NextMissing(it)
	if first != second {
		t.Fatalf("NextMissing should be stable without updates: %s vs %s", first, second)
	}
}

func TestNextMissing_AmountSatisfiesQuantitySlot(t *testing.T) {
	amount := decimal.NewFromInt(500)
	it := TradeIntent{
		Symbol:    "NVDA",
		Side:      sidePtr(SideBuy),
		OrderType: orderTypePtr(OrderTypeMarket),
		Amount:    &amount,
	}

	if field, _ := NextMissing(it); field != FieldTif {
		t.Errorf("amount should satisfy the quantity/amount slot, got %s", field)
	}
}
