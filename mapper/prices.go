package mapper

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/mashura/salesbridge/shopify"
)

// SentinelItemCode is posted when a line item has no SKU so the document
// still balances. Finance reclassifies these manually.
const SentinelItemCode = "ACC-0000001"

const ledgerDateLayout = "2006-01-02"

func decimalFromNumber(n json.Number) decimal.Decimal {
	if n == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ListPrice returns the price a line item is invoiced at, in priority order:
// the variant's compare-at price, then the original unit price, then the
// variant price.
func ListPrice(li shopify.LineItem) decimal.Decimal {
	if li.Variant != nil {
		if p := decimalFromNumber(li.Variant.CompareAtPrice); p.IsPositive() {
			return p
		}
	}
	if p := decimalFromNumber(li.OriginalUnitPriceSet.ShopMoney.Amount); p.IsPositive() {
		return p
	}
	if li.Variant != nil {
		return decimalFromNumber(li.Variant.Price)
	}
	return decimal.Zero
}

// SalePrice is what the customer actually paid per unit.
func SalePrice(li shopify.LineItem) decimal.Decimal {
	if p := decimalFromNumber(li.DiscountedUnitPriceSet.ShopMoney.Amount); p.IsPositive() {
		return p
	}
	return decimalFromNumber(li.OriginalUnitPriceSet.ShopMoney.Amount)
}

// DiscountPercent derives the ledger discount from list vs sale price, e.g.
// 100.00 sold at 80.00 posts as a 20% discount. Zero when the list price is
// zero or not above the sale price.
func DiscountPercent(list, sale decimal.Decimal) decimal.Decimal {
	if !list.IsPositive() || list.LessThanOrEqual(sale) {
		return decimal.Zero
	}
	return list.Sub(sale).Div(list).Mul(decimal.NewFromInt(100)).Round(6)
}

func itemCode(li shopify.LineItem) string {
	if li.SKU != "" {
		return li.SKU
	}
	if li.Variant != nil && li.Variant.SKU != "" {
		return li.Variant.SKU
	}
	return SentinelItemCode
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
