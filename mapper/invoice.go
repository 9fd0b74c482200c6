package mapper

import (
	"errors"
	"strings"
	"time"

	"github.com/mashura/salesbridge/locations"
	"github.com/mashura/salesbridge/sap"
	"github.com/mashura/salesbridge/shopify"
)

// Financial statuses as the storefront reports them.
const (
	FinancialStatusPaid              = "PAID"
	FinancialStatusPartiallyRefunded = "PARTIALLY_REFUNDED"
	FinancialStatusRefunded          = "REFUNDED"
)

// Payment type flags carried on the invoice user field.
const (
	PayTypePrepaid        = 1 // settled online or at the register
	PayTypeCashOnDelivery = 2 // local order, payment collected on delivery
	PayTypeOther          = 3
)

// Order-type classification on the invoice header, highest priority first:
// gift-card orders, then pickup orders, then the courier code carried as the
// first character of the order note.
const (
	OrderTypeGiftCard = "1"
	OrderTypePickup   = "2"
	OrderTypeStandard = "3"
)

// GiftCardRedemptionItemCode books redeemed store value as a negative line so
// the invoice total matches what the customer actually owed.
const GiftCardRedemptionItemCode = "GIFT_CARD_REDEMPTION"

const codGateway = "cash_on_delivery"

// ErrMissingCustomerCode rejects a document whose resolved bundle carries no
// customer; the whole document fails, nothing partial is ever submitted.
var ErrMissingCustomerCode = errors.New("document has no customer code")

// PayType classifies how the invoice will be settled. Paid orders are 1;
// unpaid cash-on-delivery orders are 2 so the recovery pass can find them
// later; everything else is 3.
func PayType(order *shopify.Order) int {
	switch strings.ToUpper(order.DisplayFinancialStatus) {
	case FinancialStatusPaid, FinancialStatusPartiallyRefunded:
		return PayTypePrepaid
	}
	if g := SaleGateway(order); strings.EqualFold(g, codGateway) {
		return PayTypeCashOnDelivery
	}
	return PayTypeOther
}

// SaleGateway returns the gateway of the successful sale/capture transaction.
func SaleGateway(order *shopify.Order) string {
	for _, t := range order.Transactions {
		if isSuccessfulSale(t) {
			return t.Gateway
		}
	}
	if len(order.Transactions) > 0 {
		return order.Transactions[0].Gateway
	}
	return ""
}

// IsGiftCardLine detects gift-card products by SKU/name; the line item itself
// carries no explicit flag.
func IsGiftCardLine(li shopify.LineItem) bool {
	if strings.HasPrefix(strings.ToUpper(itemCode(li)), "GIFT") {
		return true
	}
	return strings.Contains(strings.ToLower(li.Name), "gift card")
}

// OrderType classifies the invoice header. Gift-card orders win, then pickup
// orders (no shipping address), then the courier annotation on the note.
func OrderType(order *shopify.Order) string {
	for _, li := range order.LineItems.Nodes {
		if IsGiftCardLine(li) {
			return OrderTypeGiftCard
		}
	}
	if order.ShippingAddress == nil {
		return OrderTypePickup
	}
	if note := strings.TrimSpace(order.Note); note != "" {
		return string([]rune(note)[0])
	}
	return OrderTypeStandard
}

// OrderReference is the order name without the leading "#", used as
// NumAtCard so the ledger document can be traced back to the order.
func OrderReference(order *shopify.Order) string {
	return strings.TrimPrefix(order.Name, "#")
}

// BuildInvoice maps an order to a ledger invoice. One line per line item;
// warehouse and costing codes come from the location bundle. Gift-card
// product lines are left out (the gift-card invoice covers those) and any
// redeemed store value lands as a negative line.
func BuildInvoice(order *shopify.Order, bundle locations.CostingBundle, docDate time.Time) *sap.Document {
	doc := &sap.Document{
		CardCode:        bundle.CustomerCode,
		DocDate:         docDate.Format(ledgerDateLayout),
		DocDueDate:      docDate.Format(ledgerDateLayout),
		NumAtCard:       OrderReference(order),
		Comments:        "Shopify Order " + order.Name,
		Series:          bundle.SeriesFor("invoice"),
		SalesPersonCode: bundle.SalesEmployee,
		UPayType:        PayType(order),
		UOrderType:      OrderType(order),
	}

	for _, li := range order.LineItems.Nodes {
		if li.Quantity <= 0 || IsGiftCardLine(li) {
			continue
		}
		list := ListPrice(li)
		sale := SalePrice(li)
		doc.DocumentLines = append(doc.DocumentLines, sap.DocumentLine{
			ItemCode:         itemCode(li),
			Quantity:         float64(li.Quantity),
			UnitPrice:        toFloat(list),
			DiscountPercent:  toFloat(DiscountPercent(list, sale)),
			WarehouseCode:    bundle.Warehouse,
			CostingCode:      bundle.LocationCC,
			CostingCode2:     bundle.DepartmentCC,
			CostingCode3:     bundle.ActivityCC,
			COGSCostingCode:  bundle.LocationCC,
			COGSCostingCode2: bundle.DepartmentCC,
			COGSCostingCode3: bundle.ActivityCC,
		})
	}

	if redeemed := GiftCardRedemptionAmount(order); redeemed.IsPositive() {
		doc.DocumentLines = append(doc.DocumentLines, sap.DocumentLine{
			ItemCode:     GiftCardRedemptionItemCode,
			Quantity:     1,
			UnitPrice:    -toFloat(redeemed),
			CostingCode:  bundle.LocationCC,
			CostingCode2: bundle.DepartmentCC,
			CostingCode3: bundle.ActivityCC,
		})
	}
	return doc
}

// ValidateDocument gates every document before submission: a missing
// customer code or an empty line set fails the document atomically.
func ValidateDocument(doc *sap.Document) error {
	if strings.TrimSpace(doc.CardCode) == "" {
		return ErrMissingCustomerCode
	}
	if len(doc.DocumentLines) == 0 {
		return errors.New("document has no lines")
	}
	return nil
}
