package mapper

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mashura/salesbridge/locations"
	"github.com/mashura/salesbridge/sap"
	"github.com/mashura/salesbridge/shopify"
)

// BuildGiftCardInvoice posts the store-credit leg of a return: a single-line
// invoice for exactly the credit-note total, stamped with the gift card id so
// the credit can be traced when the card is later redeemed.
func BuildGiftCardInvoice(order *shopify.Order, bundle locations.CostingBundle, giftCardID string, amount decimal.Decimal, currency string, docDate time.Time) *sap.Document {
	return &sap.Document{
		CardCode:        bundle.CustomerCode,
		DocDate:         docDate.Format(ledgerDateLayout),
		DocDueDate:      docDate.Format(ledgerDateLayout),
		NumAtCard:       OrderReference(order),
		Comments:        "Gift card issued for return on Shopify Order " + order.Name,
		Series:          bundle.SeriesFor("invoice"),
		SalesPersonCode: bundle.SalesEmployee,
		DocCurrency:     currency,
		ImportFileNum:   OrderReference(order),
		UPayType:        PayTypePrepaid,
		UOrderType:      OrderTypeGiftCard,
		UGiftCard:       shopify.NumericID(giftCardID),
		DocumentLines: []sap.DocumentLine{
			{
				ItemCode:      SentinelItemCode,
				Quantity:      1,
				UnitPrice:     toFloat(amount),
				WarehouseCode: bundle.Warehouse,
				CostingCode:   bundle.LocationCC,
				CostingCode2:  bundle.DepartmentCC,
				CostingCode3:  bundle.ActivityCC,
			},
		},
	}
}

// BuildReconciliation pairs the credit note's journal entry against the
// gift-card invoice's so neither document stays open on the customer account.
func BuildReconciliation(creditNoteTransNum, invoiceTransNum int, amount decimal.Decimal, reconDate time.Time) *sap.InternalReconciliation {
	value := toFloat(amount)
	return &sap.InternalReconciliation{
		ReconDate:     reconDate.Format(ledgerDateLayout),
		CardOrAccount: "coaCard",
		Rows: []sap.ReconciliationRow{
			{
				TransId:         creditNoteTransNum,
				TransRowId:      0,
				SrcObjTyp:       sap.ObjTypeCreditNote,
				CreditOrDebit:   "codCredit",
				ReconcileAmount: value,
				Selected:        "tYES",
			},
			{
				TransId:         invoiceTransNum,
				TransRowId:      0,
				SrcObjTyp:       sap.ObjTypeInvoice,
				CreditOrDebit:   "codDebit",
				ReconcileAmount: value,
				Selected:        "tYES",
			},
		},
	}
}
