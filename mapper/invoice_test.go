package mapper

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mashura/salesbridge/locations"
	"github.com/mashura/salesbridge/sap"
	"github.com/mashura/salesbridge/shopify"
)

func webBundle() locations.CostingBundle {
	return locations.CostingBundle{
		Key:           "SW",
		Warehouse:     "SW",
		LocationCC:    "ONL",
		DepartmentCC:  "SAL",
		ActivityCC:    "OnlineS",
		Series:        locations.SeriesSet{Invoices: 82, CreditNotes: 83, IncomingPayments: 84, OutgoingPayments: 85},
		CashAccount:   "110101",
		Credit:        map[string]string{"paymob": "120301"},
		SalesEmployee: 28,
		CustomerCode:  "C-WEB",
	}
}

func cashOrder() *shopify.Order {
	order := &shopify.Order{
		ID:                     "gid://shopify/Order/1001",
		Name:                   "#1001",
		DisplayFinancialStatus: "PAID",
	}
	li := lineItem("", "50.00", "50.00", "")
	li.ID = "gid://shopify/LineItem/11"
	li.SKU = "A-1"
	li.Quantity = 2
	li.CurrentQuantity = 2
	order.LineItems.Nodes = []shopify.LineItem{li}
	order.Transactions = []shopify.Transaction{
		{Kind: "SALE", Status: "SUCCESS", Gateway: "cash"},
	}
	return order
}

func TestBuildInvoiceCashOrder(t *testing.T) {
	order := cashOrder()
	doc := BuildInvoice(order, webBundle(), time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC))

	if doc.CardCode != "C-WEB" || doc.Series != 82 || doc.SalesPersonCode != 28 {
		t.Fatalf("header mismatch: %+v", doc)
	}
	if doc.NumAtCard != "1001" {
		t.Fatalf("NumAtCard should drop the #, got %q", doc.NumAtCard)
	}
	if doc.UPayType != PayTypePrepaid {
		t.Fatalf("paid order should be pay type 1, got %d", doc.UPayType)
	}
	if len(doc.DocumentLines) != 1 {
		t.Fatalf("expected one line, got %d", len(doc.DocumentLines))
	}
	line := doc.DocumentLines[0]
	if line.ItemCode != "A-1" || line.Quantity != 2 || line.UnitPrice != 50.00 {
		t.Fatalf("line mismatch: %+v", line)
	}
	if line.DiscountPercent != 0 {
		t.Fatalf("no discount expected, got %v", line.DiscountPercent)
	}
	if line.WarehouseCode != "SW" || line.CostingCode != "ONL" || line.COGSCostingCode3 != "OnlineS" {
		t.Fatalf("costing mismatch: %+v", line)
	}
}

func TestBuildInvoiceDiscountedLine(t *testing.T) {
	order := cashOrder()
	li := lineItem("", "100.00", "80.00", "")
	li.SKU = "B-2"
	li.Quantity = 1
	order.LineItems.Nodes = []shopify.LineItem{li}

	doc := BuildInvoice(order, webBundle(), time.Now())
	line := doc.DocumentLines[0]
	if line.UnitPrice != 100.00 {
		t.Fatalf("list price should go on the line, got %v", line.UnitPrice)
	}
	if line.DiscountPercent != 20.00 {
		t.Fatalf("expected 20%% discount, got %v", line.DiscountPercent)
	}
}

func TestPayTypeClassification(t *testing.T) {
	order := cashOrder()
	order.DisplayFinancialStatus = "PARTIALLY_REFUNDED"
	if got := PayType(order); got != PayTypePrepaid {
		t.Fatalf("partially refunded is still prepaid, got %d", got)
	}

	order.DisplayFinancialStatus = "PENDING"
	order.Transactions = []shopify.Transaction{{Kind: "SALE", Status: "SUCCESS", Gateway: "cash_on_delivery"}}
	if got := PayType(order); got != PayTypeCashOnDelivery {
		t.Fatalf("pending COD should be pay type 2, got %d", got)
	}

	order.Transactions = []shopify.Transaction{{Kind: "SALE", Status: "SUCCESS", Gateway: "paymob"}}
	if got := PayType(order); got != PayTypeOther {
		t.Fatalf("pending gateway order should be pay type 3, got %d", got)
	}
}

func txn(kind, gateway, amount string) shopify.Transaction {
	t := shopify.Transaction{Kind: kind, Status: "SUCCESS", Gateway: gateway}
	t.AmountSet.ShopMoney.Amount = json.Number(amount)
	return t
}

func TestOrderTypeClassification(t *testing.T) {
	order := cashOrder()
	order.ShippingAddress = &shopify.Address{City: "Cairo"}
	order.Note = "B-express"
	if got := OrderType(order); got != "B" {
		t.Fatalf("courier note should classify by first character, got %q", got)
	}

	order.Note = ""
	if got := OrderType(order); got != OrderTypeStandard {
		t.Fatalf("shipped order without note = %q, want %q", got, OrderTypeStandard)
	}

	order.ShippingAddress = nil
	if got := OrderType(order); got != OrderTypePickup {
		t.Fatalf("no shipping address should mean pickup, got %q", got)
	}

	// A gift-card line wins over everything else.
	gift := lineItem("", "200.00", "200.00", "")
	gift.SKU = "GIFT-200"
	gift.Name = "Gift Card 200"
	gift.Quantity = 1
	order.ShippingAddress = &shopify.Address{City: "Cairo"}
	order.Note = "B-express"
	order.LineItems.Nodes = append(order.LineItems.Nodes, gift)
	if got := OrderType(order); got != OrderTypeGiftCard {
		t.Fatalf("gift-card order = %q, want %q", got, OrderTypeGiftCard)
	}
}

func TestBuildInvoiceExcludesGiftCardLines(t *testing.T) {
	order := cashOrder()
	gift := lineItem("", "200.00", "200.00", "")
	gift.SKU = "GIFT-200"
	gift.Name = "Gift Card 200"
	gift.Quantity = 1
	order.LineItems.Nodes = append(order.LineItems.Nodes, gift)

	doc := BuildInvoice(order, webBundle(), time.Now())
	if len(doc.DocumentLines) != 1 || doc.DocumentLines[0].ItemCode != "A-1" {
		t.Fatalf("gift-card product line must not be invoiced: %+v", doc.DocumentLines)
	}
	if doc.UOrderType != OrderTypeGiftCard {
		t.Fatalf("order type = %q, want %q", doc.UOrderType, OrderTypeGiftCard)
	}
}

func TestBuildInvoiceRedeemedGiftCardPostsNegativeLine(t *testing.T) {
	order := cashOrder()
	order.Transactions = []shopify.Transaction{
		txn("SALE", "gift_card", "25.00"),
		txn("SALE", "cash", "75.00"),
	}

	doc := BuildInvoice(order, webBundle(), time.Now())
	if len(doc.DocumentLines) != 2 {
		t.Fatalf("expected merchandise + redemption lines, got %+v", doc.DocumentLines)
	}
	redemption := doc.DocumentLines[1]
	if redemption.ItemCode != GiftCardRedemptionItemCode || redemption.Quantity != 1 {
		t.Fatalf("redemption line mismatch: %+v", redemption)
	}
	if redemption.UnitPrice != -25.00 {
		t.Fatalf("redeemed value must post negative, got %v", redemption.UnitPrice)
	}
}

func TestValidateDocumentRequiresCustomerCode(t *testing.T) {
	doc := BuildInvoice(cashOrder(), webBundle(), time.Now())
	if err := ValidateDocument(doc); err != nil {
		t.Fatalf("complete document must validate: %v", err)
	}

	bundle := webBundle()
	bundle.CustomerCode = ""
	doc = BuildInvoice(cashOrder(), bundle, time.Now())
	if err := ValidateDocument(doc); err != ErrMissingCustomerCode {
		t.Fatalf("missing customer code must fail the document, got %v", err)
	}

	doc = &sap.Document{CardCode: "C-WEB"}
	if err := ValidateDocument(doc); err == nil {
		t.Fatal("empty document must not validate")
	}
}

func TestBuildIncomingPaymentCash(t *testing.T) {
	order := cashOrder()
	invoice := &sap.DocumentResult{DocEntry: 501, CardCode: "C-WEB", DocTotal: json.Number("100.00")}

	payment := BuildIncomingPayment(order, webBundle(), invoice, time.Now())
	if payment.CashAccount != "110101" || payment.CashSum != 100.00 {
		t.Fatalf("cash order should post CashSum 100.00, got %+v", payment)
	}
	if payment.TransferAccount != "" || payment.TransferSum != 0 {
		t.Fatalf("cash order must not touch transfer fields: %+v", payment)
	}
	if len(payment.PaymentInvoices) != 1 || payment.PaymentInvoices[0].DocEntry != 501 || payment.PaymentInvoices[0].SumApplied != 100.00 {
		t.Fatalf("payment must apply against the invoice: %+v", payment.PaymentInvoices)
	}
	if payment.Series != 84 {
		t.Fatalf("incoming payment series mismatch: %d", payment.Series)
	}
}

func TestBuildIncomingPaymentGateway(t *testing.T) {
	order := cashOrder()
	order.Transactions = []shopify.Transaction{{Kind: "CAPTURE", Status: "SUCCESS", Gateway: "Paymob"}}
	invoice := &sap.DocumentResult{DocEntry: 502, CardCode: "C-WEB", DocTotal: json.Number("250.50")}

	payment := BuildIncomingPayment(order, webBundle(), invoice, time.Now())
	if payment.TransferAccount != "120301" || payment.TransferSum != 250.50 {
		t.Fatalf("gateway order should post to the mapped transfer account: %+v", payment)
	}
	if payment.CashSum != 0 {
		t.Fatalf("gateway order must not post cash: %+v", payment)
	}
}

func TestBuildIncomingPaymentExcludesGiftCardTender(t *testing.T) {
	order := cashOrder()
	order.Transactions = []shopify.Transaction{
		txn("SALE", "gift_card", "40.00"),
		txn("SALE", "cash", "60.00"),
	}
	invoice := &sap.DocumentResult{DocEntry: 503, CardCode: "C-WEB", DocTotal: json.Number("100.00")}

	payment := BuildIncomingPayment(order, webBundle(), invoice, time.Now())
	if payment.CashSum != 60.00 || payment.CashAccount != "110101" {
		t.Fatalf("gift-card tender must stay out of the cash total: %+v", payment)
	}
	if payment.TransferSum != 0 || len(payment.PaymentCreditCards) != 0 {
		t.Fatalf("only the cash tender should post: %+v", payment)
	}
	if payment.PaymentInvoices[0].SumApplied != 60.00 {
		t.Fatalf("applied sum must match the money actually collected: %+v", payment.PaymentInvoices)
	}
}

func TestBuildIncomingPaymentSplitsMixedTenders(t *testing.T) {
	order := cashOrder()
	order.Transactions = []shopify.Transaction{
		txn("SALE", "cash", "60.00"),
		txn("CAPTURE", "paymob", "40.00"),
	}
	invoice := &sap.DocumentResult{DocEntry: 504, CardCode: "C-WEB", DocTotal: json.Number("100.00")}

	payment := BuildIncomingPayment(order, webBundle(), invoice, time.Now())
	if payment.CashAccount != "110101" || payment.CashSum != 60.00 {
		t.Fatalf("cash split mismatch: %+v", payment)
	}
	if payment.TransferAccount != "120301" || payment.TransferSum != 40.00 {
		t.Fatalf("transfer split mismatch: %+v", payment)
	}
	if payment.PaymentInvoices[0].SumApplied != 100.00 {
		t.Fatalf("applied sum must cover both tenders: %+v", payment.PaymentInvoices)
	}
}

func TestBuildIncomingPaymentCardTender(t *testing.T) {
	bundle := webBundle()
	bundle.Cards = map[string]int{"geidea": 3}
	order := cashOrder()
	order.TotalPriceSet.ShopMoney.CurrencyCode = "EGP"
	order.Transactions = []shopify.Transaction{txn("SALE", "Geidea", "150.00")}
	invoice := &sap.DocumentResult{DocEntry: 505, CardCode: "C-WEB", DocTotal: json.Number("150.00")}

	payment := BuildIncomingPayment(order, bundle, invoice, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC))
	if len(payment.PaymentCreditCards) != 1 {
		t.Fatalf("card tender must post a credit-card row: %+v", payment)
	}
	card := payment.PaymentCreditCards[0]
	if card.CreditCard != 3 || card.CreditSum != 150.00 || card.CreditType != "cr_Regular" {
		t.Fatalf("card row mismatch: %+v", card)
	}
	if card.CardValidUntil != "2026-02-28" || card.CreditCur != "EGP" {
		t.Fatalf("card row mismatch: %+v", card)
	}
	if payment.CashSum != 0 || payment.TransferSum != 0 {
		t.Fatalf("card tender must not post cash or transfer: %+v", payment)
	}
	if payment.PaymentInvoices[0].SumApplied != 150.00 {
		t.Fatalf("applied sum mismatch: %+v", payment.PaymentInvoices)
	}
}
