package mapper

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mashura/salesbridge/locations"
	"github.com/mashura/salesbridge/sap"
)

func openInvoice() *sap.DocumentResult {
	return &sap.DocumentResult{
		DocEntry:        501,
		CardCode:        "C-WEB",
		DocumentStatus:  "bost_Open",
		SalesPersonCode: 12,
		TransNum:        9001,
		DocTotal:        json.Number("100.00"),
		DocumentLines: []sap.DocumentLineResult{
			{
				LineNum:          0,
				ItemCode:         "A-1",
				WarehouseCode:    "SW",
				CostingCode:      "ONL",
				CostingCode2:     "SAL",
				CostingCode3:     "OnlineS",
				COGSCostingCode:  "ONL",
				COGSCostingCode2: "SAL",
				COGSCostingCode3: "OnlineS",
				DocumentLinesBinAllocations: []sap.BinAllocation{
					{BinAbsEntry: 7, Quantity: 2},
				},
			},
		},
	}
}

func returnedItems() []ReturnedItem {
	return []ReturnedItem{
		{
			LineItemID: "11",
			SKU:        "A-1",
			Quantity:   1,
			ListPrice:  decimal.NewFromInt(50),
			SalePrice:  decimal.NewFromInt(50),
		},
	}
}

func returnBundle() locations.CostingBundle {
	b := webBundle()
	b.Key = "74311521324"
	b.Warehouse = "MAADI"
	return b
}

func TestBuildCreditNoteCopiesInvoiceLine(t *testing.T) {
	order := cashOrder()
	doc := BuildCreditNote(order, returnBundle(), openInvoice(), returnedItems(), true, time.Now())

	if doc.Series != 83 {
		t.Fatalf("credit note series mismatch: %d", doc.Series)
	}
	if doc.SalesPersonCode != 12 {
		t.Fatalf("salesperson should come from the invoice, got %d", doc.SalesPersonCode)
	}
	if doc.Comments != "Return for Shopify Order #1001" {
		t.Fatalf("comments mismatch: %q", doc.Comments)
	}
	if len(doc.DocumentLines) != 1 {
		t.Fatalf("expected one line, got %d", len(doc.DocumentLines))
	}

	line := doc.DocumentLines[0]
	// Costing comes from the invoice line, the warehouse from the return location.
	if line.CostingCode != "ONL" || line.COGSCostingCode2 != "SAL" {
		t.Fatalf("costing codes not copied: %+v", line)
	}
	if line.WarehouseCode != "MAADI" {
		t.Fatalf("warehouse must be the return location's, got %q", line.WarehouseCode)
	}
	if line.BaseEntry == nil || *line.BaseEntry != 501 || *line.BaseType != 13 || *line.BaseLine != 0 {
		t.Fatalf("base refs missing on open invoice: %+v", line)
	}
	if len(line.DocumentLinesBinAllocations) != 1 || line.DocumentLinesBinAllocations[0].Quantity != 1 {
		t.Fatalf("bin allocation should track the returned quantity: %+v", line.DocumentLinesBinAllocations)
	}
}

func TestBuildCreditNoteWithoutBaseRefs(t *testing.T) {
	order := cashOrder()
	doc := BuildCreditNote(order, returnBundle(), openInvoice(), returnedItems(), false, time.Now())

	line := doc.DocumentLines[0]
	if line.BaseEntry != nil || line.BaseType != nil || line.BaseLine != nil {
		t.Fatalf("closed invoice must not get base refs: %+v", line)
	}
	// Costing still copies even without base refs.
	if line.CostingCode != "ONL" {
		t.Fatalf("costing should still copy: %+v", line)
	}
}

func TestBuildCreditNoteUnmatchedItemUsesBundleCosting(t *testing.T) {
	order := cashOrder()
	items := []ReturnedItem{{
		LineItemID: "12",
		SKU:        "ZZ-9",
		Quantity:   1,
		ListPrice:  decimal.NewFromInt(10),
		SalePrice:  decimal.NewFromInt(10),
	}}
	doc := BuildCreditNote(order, returnBundle(), openInvoice(), items, true, time.Now())

	line := doc.DocumentLines[0]
	if line.BaseEntry != nil {
		t.Fatalf("unmatched line must not reference the invoice: %+v", line)
	}
	if line.CostingCode != "ONL" || line.WarehouseCode != "MAADI" {
		t.Fatalf("bundle costing expected: %+v", line)
	}
}

func TestItemsTotal(t *testing.T) {
	items := []ReturnedItem{
		{Quantity: 2, SalePrice: decimal.NewFromFloat(49.99)},
		{Quantity: 1, SalePrice: decimal.NewFromFloat(10.02)},
	}
	if got := ItemsTotal(items); !got.Equal(decimal.NewFromFloat(110.00)) {
		t.Fatalf("items total = %s", got)
	}
}

func TestBuildGiftCardInvoiceMatchesAmount(t *testing.T) {
	order := cashOrder()
	amount := decimal.NewFromFloat(149.99)
	doc := BuildGiftCardInvoice(order, webBundle(), "gid://shopify/GiftCard/888", amount, "EGP", time.Now())

	if len(doc.DocumentLines) != 1 {
		t.Fatalf("gift card invoice must have exactly one line, got %d", len(doc.DocumentLines))
	}
	line := doc.DocumentLines[0]
	if line.ItemCode != SentinelItemCode || line.Quantity != 1 {
		t.Fatalf("line mismatch: %+v", line)
	}
	if line.UnitPrice != 149.99 {
		t.Fatalf("gift card invoice amount must equal the credit total, got %v", line.UnitPrice)
	}
	if doc.UGiftCard != "888" {
		t.Fatalf("gift card id should be numeric, got %q", doc.UGiftCard)
	}
	if doc.UPayType != PayTypePrepaid || doc.UOrderType != "1" {
		t.Fatalf("user fields mismatch: %+v", doc)
	}
	if doc.DocCurrency != "EGP" {
		t.Fatalf("currency mismatch: %q", doc.DocCurrency)
	}
}

func TestBuildReconciliationPairsJournalEntries(t *testing.T) {
	amount := decimal.NewFromFloat(149.99)
	recon := BuildReconciliation(9002, 9003, amount, time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC))

	if recon.CardOrAccount != "coaCard" {
		t.Fatalf("CardOrAccount mismatch: %q", recon.CardOrAccount)
	}
	if len(recon.Rows) != 2 {
		t.Fatalf("expected two rows, got %d", len(recon.Rows))
	}
	cn, inv := recon.Rows[0], recon.Rows[1]
	if cn.TransId != 9002 || cn.SrcObjTyp != "14" || cn.CreditOrDebit != "codCredit" {
		t.Fatalf("credit note row mismatch: %+v", cn)
	}
	if inv.TransId != 9003 || inv.SrcObjTyp != "13" || inv.CreditOrDebit != "codDebit" {
		t.Fatalf("invoice row mismatch: %+v", inv)
	}
	if cn.ReconcileAmount != 149.99 || inv.ReconcileAmount != 149.99 {
		t.Fatalf("amounts must match the credit total: %+v", recon.Rows)
	}
	if cn.Selected != "tYES" || inv.Selected != "tYES" {
		t.Fatalf("rows must be selected: %+v", recon.Rows)
	}
}

func TestBuildOutgoingPaymentReusesOriginalChannel(t *testing.T) {
	order := cashOrder()
	order.DisplayFinancialStatus = "REFUNDED"
	cn := &sap.DocumentResult{DocEntry: 601, CardCode: "C-WEB", DocTotal: json.Number("100.00")}

	// Transfer-based original payment.
	original := &sap.PaymentResult{TransferAccount: "120301", TransferSum: json.Number("100.00")}
	payment := BuildOutgoingPayment(order, webBundle(), cn, original, time.Now())
	if payment.DocType != "rCustomer" {
		t.Fatalf("outgoing payment must be rCustomer, got %q", payment.DocType)
	}
	if payment.TransferAccount != "120301" || payment.TransferSum != 100.00 {
		t.Fatalf("transfer channel not reused: %+v", payment)
	}
	if len(payment.PaymentInvoices) != 1 || payment.PaymentInvoices[0].InvoiceType != "it_CredItnote" || payment.PaymentInvoices[0].DocEntry != 601 {
		t.Fatalf("refund must apply against the credit note: %+v", payment.PaymentInvoices)
	}

	// Cash original payment.
	original = &sap.PaymentResult{CashAccount: "110101", CashSum: json.Number("100.00")}
	payment = BuildOutgoingPayment(order, webBundle(), cn, original, time.Now())
	if payment.CashAccount != "110101" || payment.CashSum != 100.00 {
		t.Fatalf("cash channel not reused: %+v", payment)
	}
}

func TestBuildOutgoingPaymentRebuildsCreditCard(t *testing.T) {
	order := cashOrder()
	cn := &sap.DocumentResult{DocEntry: 601, CardCode: "C-WEB", DocTotal: json.Number("75.00")}
	original := &sap.PaymentResult{
		PaymentCreditCards: []sap.PaymentCreditCardResult{
			{CreditCard: 3, CreditCur: "EGP", CreditSum: json.Number("75.00")},
		},
	}

	docDate := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	payment := BuildOutgoingPayment(order, webBundle(), cn, original, docDate)
	if len(payment.PaymentCreditCards) != 1 {
		t.Fatalf("expected one rebuilt card row: %+v", payment)
	}
	card := payment.PaymentCreditCards[0]
	if card.CreditCardNumber != "1234" || card.PaymentMethodCode != 1 || card.CreditType != "cr_Regular" || card.SplitPayments != "tNO" {
		t.Fatalf("card row mismatch: %+v", card)
	}
	if card.CreditSum != 75.00 || card.CreditCur != "EGP" {
		t.Fatalf("card amount mismatch: %+v", card)
	}
	// February 2026 ends on the 28th.
	if card.CardValidUntil != "2026-02-28" {
		t.Fatalf("CardValidUntil should be end of month, got %q", card.CardValidUntil)
	}
}
