package mapper

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mashura/salesbridge/shopify"
)

func lineItem(compareAt, original, discounted, variantPrice string) shopify.LineItem {
	li := shopify.LineItem{}
	li.OriginalUnitPriceSet.ShopMoney.Amount = json.Number(original)
	li.DiscountedUnitPriceSet.ShopMoney.Amount = json.Number(discounted)
	if compareAt != "" || variantPrice != "" {
		li.Variant = &shopify.Variant{
			CompareAtPrice: json.Number(compareAt),
			Price:          json.Number(variantPrice),
		}
	}
	return li
}

func TestListPricePriority(t *testing.T) {
	// Compare-at price wins over everything.
	li := lineItem("120.00", "100.00", "80.00", "90.00")
	if got := ListPrice(li); !got.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("compare-at should win, got %s", got)
	}

	// Without compare-at, the original unit price wins.
	li = lineItem("", "100.00", "80.00", "90.00")
	if got := ListPrice(li); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("original unit price should win, got %s", got)
	}

	// Variant price is the last resort.
	li = lineItem("", "0", "0", "90.00")
	if got := ListPrice(li); !got.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("variant price should be the fallback, got %s", got)
	}
}

func TestDiscountPercent(t *testing.T) {
	pct := DiscountPercent(decimal.NewFromInt(100), decimal.NewFromInt(80))
	if !pct.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("100 -> 80 should be a 20%% discount, got %s", pct)
	}

	// No discount when the sale price is not below list.
	if got := DiscountPercent(decimal.NewFromInt(80), decimal.NewFromInt(80)); !got.IsZero() {
		t.Fatalf("equal prices should not discount, got %s", got)
	}
	if got := DiscountPercent(decimal.NewFromInt(80), decimal.NewFromInt(100)); !got.IsZero() {
		t.Fatalf("sale above list should not discount, got %s", got)
	}
	// Zero list price must not divide by zero.
	if got := DiscountPercent(decimal.Zero, decimal.NewFromInt(10)); !got.IsZero() {
		t.Fatalf("zero list price should yield zero discount, got %s", got)
	}
}

func TestItemCodeFallsBackToSentinel(t *testing.T) {
	li := shopify.LineItem{SKU: "A-1"}
	if got := itemCode(li); got != "A-1" {
		t.Fatalf("sku should be used, got %q", got)
	}
	li = shopify.LineItem{Variant: &shopify.Variant{SKU: "V-2"}}
	if got := itemCode(li); got != "V-2" {
		t.Fatalf("variant sku should be used, got %q", got)
	}
	li = shopify.LineItem{}
	if got := itemCode(li); got != SentinelItemCode {
		t.Fatalf("missing sku should map to sentinel, got %q", got)
	}
}
