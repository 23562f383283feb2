package ai

import (
	"testing"

	"broker-assistant/internal/intent"
)

func TestParseInterpretation_ExtractsEmbeddedJSON(t *testing.T) {
	content := "Sure, here is the structured result:\n" +
		`{"type":"ORDER","intent":{"symbol":"NVDA","side":"buy","quantity":5}}` +
		"\nLet me know if you need anything else."

	got, err := parseInterpretation(content)
	if err != nil {
		t.Fatalf("parseInterpretation returned error: %v", err)
	}
	if got.Type != TypeOrder {
		t.Errorf("expected ORDER, got %s", got.Type)
	}
	if got.Intent.Symbol != "NVDA" {
		t.Errorf("expected symbol NVDA, got %q", got.Intent.Symbol)
	}
	if got.Intent.Side == nil || *got.Intent.Side != intent.SideBuy {
		t.Errorf("expected side BUY, got %v", got.Intent.Side)
	}
	if got.Intent.Quantity == nil || *got.Intent.Quantity != 5 {
		t.Errorf("expected quantity 5, got %v", got.Intent.Quantity)
	}
}

func TestParseInterpretation_NoJSON(t *testing.T) {
	if _, err := parseInterpretation("I can't help with that."); err == nil {
		t.Errorf("content without JSON must fail")
	}
}

func TestNormalize_UnknownTypeFallsBackToAsk(t *testing.T) {
	got, err := parseInterpretation(`{"type":"CHITCHAT","question":"what?"}`)
	if err != nil {
		t.Fatalf("parseInterpretation returned error: %v", err)
	}
	if got.Type != TypeAsk {
		t.Errorf("unknown type should normalize to ASK, got %s", got.Type)
	}
	if got.Question != "what?" {
		t.Errorf("question should survive, got %q", got.Question)
	}
}

func TestNormalize_DropsInvalidEnums(t *testing.T) {
	got, err := parseInterpretation(
		`{"type":"ORDER","intent":{"side":"maybe","orderType":"TRAILING","tif":"FOREVER"}}`,
	)
	if err != nil {
		t.Fatalf("parseInterpretation returned error: %v", err)
	}
	if got.Intent.Side != nil || got.Intent.OrderType != nil || got.Intent.Tif != nil {
		t.Errorf("invalid enums must be dropped, got %+v", got.Intent)
	}
}

func TestNormalize_DropsBadQuantities(t *testing.T) {
	cases := map[string]string{
		"fractional": `{"type":"ORDER","intent":{"quantity":2.5}}`,
		"zero":       `{"type":"ORDER","intent":{"quantity":0}}`,
		"negative":   `{"type":"ORDER","intent":{"quantity":-3}}`,
	}
	for name, payload := range cases {
		got, err := parseInterpretation(payload)
		if err != nil {
			t.Fatalf("%s: parseInterpretation returned error: %v", name, err)
		}
		if got.Intent.Quantity != nil {
			t.Errorf("%s: quantity must be dropped, got %v", name, *got.Intent.Quantity)
		}
	}
}

func TestNormalize_QuantityAndAmountAreMutuallyExclusive(t *testing.T) {
	got, err := parseInterpretation(
		`{"type":"ORDER","intent":{"quantity":5,"amount":500}}`,
	)
	if err != nil {
		t.Fatalf("parseInterpretation returned error: %v", err)
	}
	if got.Intent.Quantity != nil || got.Intent.Amount != nil {
		t.Errorf("conflicting quantity and amount must both be dropped, got %+v", got.Intent)
	}
}

func TestNormalize_DropsNonPositivePrices(t *testing.T) {
	got, err := parseInterpretation(
		`{"type":"ORDER","intent":{"limitPrice":0,"stopPrice":-1}}`,
	)
	if err != nil {
		t.Fatalf("parseInterpretation returned error: %v", err)
	}
	if got.Intent.LimitPrice != nil || got.Intent.StopPrice != nil {
		t.Errorf("non-positive prices must be dropped, got %+v", got.Intent)
	}
}
