package mapper

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mashura/salesbridge/locations"
	"github.com/mashura/salesbridge/sap"
	"github.com/mashura/salesbridge/shopify"
)

// ReturnedItem is one line of a return after quantities already credited in
// earlier returns have been subtracted.
type ReturnedItem struct {
	LineItemID string
	SKU        string
	Quantity   int
	ListPrice  decimal.Decimal
	SalePrice  decimal.Decimal

	// RestockLocationID is where the item physically went back, taken from
	// the RESTOCKED disposition. Empty when the platform reported none.
	RestockLocationID string
}

func (it ReturnedItem) itemCode() string {
	if it.SKU != "" {
		return it.SKU
	}
	return SentinelItemCode
}

// Total is the credit value of this line at the price the customer paid.
func (it ReturnedItem) Total() decimal.Decimal {
	return it.SalePrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// ItemsTotal sums the credit value of all returned lines.
func ItemsTotal(items []ReturnedItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Total())
	}
	return total.Round(2)
}

const invoiceBaseType = 13

// BuildCreditNote maps returned items to a ledger credit note. Costing codes
// and bin allocations are copied from the matching invoice lines so the
// reversal hits the same cost centers; the warehouse is overridden to the
// return location's warehouse. Base references are added only when the base
// invoice is open (linkToBase), otherwise the credit note stands alone.
func BuildCreditNote(order *shopify.Order, bundle locations.CostingBundle, invoice *sap.DocumentResult, items []ReturnedItem, linkToBase bool, docDate time.Time) *sap.Document {
	doc := &sap.Document{
		CardCode:        invoice.CardCode,
		DocDate:         docDate.Format(ledgerDateLayout),
		NumAtCard:       OrderReference(order),
		Comments:        "Return for Shopify Order " + order.Name,
		Series:          bundle.SeriesFor("credit_note"),
		SalesPersonCode: invoice.SalesPersonCode,
	}
	if doc.SalesPersonCode == 0 {
		doc.SalesPersonCode = bundle.SalesEmployee
	}

	usedLines := make(map[int]bool)
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		line := sap.DocumentLine{
			ItemCode:         it.itemCode(),
			Quantity:         float64(it.Quantity),
			UnitPrice:        toFloat(it.ListPrice),
			DiscountPercent:  toFloat(DiscountPercent(it.ListPrice, it.SalePrice)),
			WarehouseCode:    bundle.Warehouse,
			CostingCode:      bundle.LocationCC,
			CostingCode2:     bundle.DepartmentCC,
			CostingCode3:     bundle.ActivityCC,
			COGSCostingCode:  bundle.LocationCC,
			COGSCostingCode2: bundle.DepartmentCC,
			COGSCostingCode3: bundle.ActivityCC,
		}

		if src := matchInvoiceLine(invoice, it.itemCode(), usedLines); src != nil {
			if src.CostingCode != "" {
				line.CostingCode = src.CostingCode
				line.CostingCode2 = src.CostingCode2
				line.CostingCode3 = src.CostingCode3
			}
			if src.COGSCostingCode != "" {
				line.COGSCostingCode = src.COGSCostingCode
				line.COGSCostingCode2 = src.COGSCostingCode2
				line.COGSCostingCode3 = src.COGSCostingCode3
			}
			for _, bin := range src.DocumentLinesBinAllocations {
				line.DocumentLinesBinAllocations = append(line.DocumentLinesBinAllocations, sap.BinAllocation{
					BinAbsEntry:    bin.BinAbsEntry,
					Quantity:       float64(it.Quantity),
					BaseLineNumber: len(doc.DocumentLines),
				})
			}
			if linkToBase {
				baseEntry := invoice.DocEntry
				baseType := invoiceBaseType
				baseLine := src.LineNum
				line.BaseEntry = &baseEntry
				line.BaseType = &baseType
				line.BaseLine = &baseLine
			}
		}

		doc.DocumentLines = append(doc.DocumentLines, line)
	}
	return doc
}

func matchInvoiceLine(invoice *sap.DocumentResult, itemCode string, used map[int]bool) *sap.DocumentLineResult {
	if invoice == nil {
		return nil
	}
	for i := range invoice.DocumentLines {
		src := &invoice.DocumentLines[i]
		if src.ItemCode == itemCode && !used[src.LineNum] {
			used[src.LineNum] = true
			return src
		}
	}
	return nil
}
