package mapper

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mashura/salesbridge/locations"
	"github.com/mashura/salesbridge/sap"
	"github.com/mashura/salesbridge/shopify"
)

// BuildOutgoingPayment maps a refund to an outgoing payment applied against
// the credit note. The money goes back the way it came in: the original
// incoming payment decides whether the refund leaves the cash account, the
// transfer account or a credit card, and the refund reuses those accounts.
func BuildOutgoingPayment(order *shopify.Order, bundle locations.CostingBundle, creditNote *sap.DocumentResult, original *sap.PaymentResult, docDate time.Time) *sap.Payment {
	amount := decimalFromNumber(creditNote.DocTotal)
	value := toFloat(amount)

	payment := &sap.Payment{
		DocType:  "rCustomer",
		CardCode: creditNote.CardCode,
		DocDate:  docDate.Format(ledgerDateLayout),
		Series:   bundle.SeriesFor("outgoing_payment"),
		Remarks:  "Refund for Shopify Order " + order.Name,
		PaymentInvoices: []sap.PaymentInvoice{
			{DocEntry: creditNote.DocEntry, SumApplied: value, InvoiceType: "it_CredItnote"},
		},
	}

	switch {
	case len(original.PaymentCreditCards) > 0:
		card := original.PaymentCreditCards[0]
		payment.PaymentCreditCards = []sap.PaymentCreditCard{
			{
				CreditCard:        card.CreditCard,
				CreditCardNumber:  "1234",
				CardValidUntil:    endOfMonth(docDate).Format(ledgerDateLayout),
				PaymentMethodCode: 1,
				CreditSum:         value,
				CreditCur:         refundCurrency(card.CreditCur, order),
				CreditType:        "cr_Regular",
				SplitPayments:     "tNO",
			},
		}
	case decimalFromNumber(original.TransferSum).IsPositive():
		payment.TransferAccount = original.TransferAccount
		payment.TransferSum = value
	default:
		payment.CashAccount = original.CashAccount
		if payment.CashAccount == "" {
			payment.CashAccount = bundle.CashAccount
		}
		payment.CashSum = value
	}
	return payment
}

// RefundAmount is the credit-note total, the exact value owed back.
func RefundAmount(creditNote *sap.DocumentResult) decimal.Decimal {
	return decimalFromNumber(creditNote.DocTotal)
}

func refundCurrency(cardCurrency string, order *shopify.Order) string {
	if cardCurrency != "" {
		return cardCurrency
	}
	if cur := order.TotalPriceSet.ShopMoney.CurrencyCode; cur != "" {
		return cur
	}
	return "EGP"
}

func endOfMonth(t time.Time) time.Time {
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}
