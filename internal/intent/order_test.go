package intent

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func completeLimitIntent() TradeIntent {
	return TradeIntent{
		Symbol:     "NVDA",
		Side:       sidePtr(SideBuy),
		OrderType:  orderTypePtr(OrderTypeLimit),
		Quantity:   int64Ptr(5),
		LimitPrice: decimalPtr(decimal.NewFromInt(190)),
		Tif:        tifPtr(TifDay),
	}
}

func TestBuildOrderBody_WireFormat(t *testing.T) {
	body, err := BuildOrderBody("nvda", completeLimitIntent())
	if err != nil {
		t.Fatalf("BuildOrderBody returned error: %v", err)
	}
	if body.OrderID == "" {
		t.Errorf("orderId must be generated")
	}

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal order body: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal order body: %v", err)
	}

	instrument, ok := got["instrument"].(map[string]any)
	if !ok {
		t.Fatalf("missing instrument object: %s", raw)
	}
	if instrument["symbol"] != "NVDA" || instrument["type"] != "EQUITY" {
		t.Errorf("unexpected instrument: %v", instrument)
	}
	if got["orderSide"] != "BUY" || got["orderType"] != "LIMIT" {
		t.Errorf("unexpected side/type: %s", raw)
	}
	expiration, ok := got["expiration"].(map[string]any)
	if !ok || expiration["timeInForce"] != "DAY" {
		t.Errorf("unexpected expiration: %v", got["expiration"])
	}
	// 数值字段按字符串传输。
	if got["quantity"] != "5" {
		t.Errorf("quantity should marshal as string, got %v", got["quantity"])
	}
	if got["limitPrice"] != "190" {
		t.Errorf("limitPrice should marshal as string, got %v", got["limitPrice"])
	}
	if _, present := got["amount"]; present {
		t.Errorf("amount must be omitted when quantity is set")
	}
	if _, present := got["stopPrice"]; present {
		t.Errorf("stopPrice must be omitted for limit orders")
	}
}

func TestBuildOrderBody_AmountVariant(t *testing.T) {
	it := completeLimitIntent()
	it.Quantity = nil
	it.Amount = decimalPtr(decimal.RequireFromString("500.25"))

	body, err := BuildOrderBody(it.Symbol, it)
	if err != nil {
		t.Fatalf("BuildOrderBody returned error: %v", err)
	}
	if body.Amount != "500.25" || body.Quantity != "" {
		t.Errorf("expected amount only, got quantity=%q amount=%q", body.Quantity, body.Amount)
	}
}

func TestBuildOrderBody_FreshOrderID(t *testing.T) {
	it := completeLimitIntent()
	a, err := BuildOrderBody(it.Symbol, it)
	if err != nil {
		t.Fatalf("BuildOrderBody returned error: %v", err)
	}
	b, err := BuildOrderBody(it.Symbol, it)
	if err != nil {
		t.Fatalf("BuildOrderBody returned error: %v", err)
	}
	if a.OrderID == b.OrderID {
		t.Errorf("each build must mint a fresh orderId, both were %s", a.OrderID)
	}
}

func TestBuildOrderBody_Incomplete(t *testing.T) {
	it := completeLimitIntent()
	it.LimitPrice = nil
	if _, err := BuildOrderBody(it.Symbol, it); err == nil {
		t.Errorf("incomplete intent must not build an order")
	}
	if _, err := BuildOrderBody("", completeLimitIntent()); err == nil {
		t.Errorf("missing symbol must not build an order")
	}
}

func TestSummary(t *testing.T) {
	if got, want := Summary(completeLimitIntent()), "BUY 5 share(s) of NVDA as LIMIT @ 190.0 (DAY)"; got != want {
		t.Errorf("Summary = %q, want %q", got, want)
	}

	it := completeLimitIntent()
	it.Quantity = nil
	it.Amount = decimalPtr(decimal.NewFromInt(500))
	it.OrderType = orderTypePtr(OrderTypeMarket)
	it.LimitPrice = nil
	it.Tif = tifPtr(TifGTC)
	if got, want := Summary(it), "BUY $500.0 of NVDA as MARKET (GTC)"; got != want {
		t.Errorf("Summary = %q, want %q", got, want)
	}

	it = completeLimitIntent()
	it.OrderType = orderTypePtr(OrderTypeStopLimit)
	it.StopPrice = decimalPtr(decimal.RequireFromString("185.25"))
	if got, want := Summary(it), "BUY 5 share(s) of NVDA as STOP_LIMIT @ 190.0 stop 185.25 (DAY)"; got != want {
		t.Errorf("Summary = %q, want %q", got, want)
	}

	if got := Summary(TradeIntent{Symbol: "NVDA"}); got != "" {
		t.Errorf("incomplete intent must yield empty summary, got %q", got)
	}
}
