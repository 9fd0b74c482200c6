package mapper

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mashura/salesbridge/locations"
	"github.com/mashura/salesbridge/sap"
	"github.com/mashura/salesbridge/shopify"
)

// IsStoreValueGateway reports whether a gateway spends store value. Those
// tenders never reach the incoming payment; the reconciliation engine settles
// them against the gift-card documents instead.
func IsStoreValueGateway(gateway string) bool {
	switch strings.ToLower(strings.TrimSpace(gateway)) {
	case "gift_card", "shopify_store_credit":
		return true
	}
	return false
}

// GiftCardRedemptionAmount sums the store-value tenders on the order's
// successful sale transactions.
func GiftCardRedemptionAmount(order *shopify.Order) decimal.Decimal {
	total := decimal.Zero
	for _, t := range order.Transactions {
		if !isSuccessfulSale(t) || !IsStoreValueGateway(t.Gateway) {
			continue
		}
		total = total.Add(decimalFromNumber(t.AmountSet.ShopMoney.Amount))
	}
	return total
}

// BuildIncomingPayment maps the order's settlement to an incoming payment
// applied against the posted invoice. The paid amount is split across the
// gateways observed on the order's successful transactions: cash tenders post
// to the location's cash account, transfer gateways to their mapped accounts,
// card gateways as credit-card rows. Store-value tenders are skipped.
func BuildIncomingPayment(order *shopify.Order, bundle locations.CostingBundle, invoice *sap.DocumentResult, docDate time.Time) *sap.Payment {
	payment := &sap.Payment{
		CardCode: invoice.CardCode,
		DocDate:  docDate.Format(ledgerDateLayout),
		Series:   bundle.SeriesFor("incoming_payment"),
		Remarks:  "Payment for Shopify Order " + order.Name,
	}

	cash := decimal.Zero
	transfer := decimal.Zero
	applied := decimal.Zero
	for _, t := range order.Transactions {
		if !isSuccessfulSale(t) || IsStoreValueGateway(t.Gateway) {
			continue
		}
		amount := decimalFromNumber(t.AmountSet.ShopMoney.Amount)
		if !amount.IsPositive() {
			continue
		}
		tender := bundle.TenderFor(t.Gateway)
		switch tender.Class {
		case locations.TenderCard:
			payment.PaymentCreditCards = append(payment.PaymentCreditCards, sap.PaymentCreditCard{
				CreditCard:        tender.CardCode,
				CreditCardNumber:  "1234",
				CardValidUntil:    endOfMonth(docDate).Format(ledgerDateLayout),
				PaymentMethodCode: 1,
				CreditSum:         toFloat(amount),
				CreditCur:         refundCurrency("", order),
				CreditType:        "cr_Regular",
				SplitPayments:     "tNO",
			})
		case locations.TenderTransfer:
			if payment.TransferAccount == "" {
				payment.TransferAccount = tender.Account
			}
			transfer = transfer.Add(amount)
		default:
			if payment.CashAccount == "" {
				payment.CashAccount = tender.Account
			}
			cash = cash.Add(amount)
		}
		applied = applied.Add(amount)
	}

	if applied.IsPositive() {
		if cash.IsPositive() {
			payment.CashSum = toFloat(cash)
		}
		if transfer.IsPositive() {
			payment.TransferSum = toFloat(transfer)
		}
	} else {
		// Transactions carry no usable amounts; apply the whole invoice
		// total to the sale gateway's account.
		applied = decimalFromNumber(invoice.DocTotal)
		account, isCash := bundle.PaymentAccount(SaleGateway(order))
		if isCash {
			payment.CashAccount = account
			payment.CashSum = toFloat(applied)
		} else {
			payment.TransferAccount = account
			payment.TransferSum = toFloat(applied)
		}
	}

	payment.PaymentInvoices = []sap.PaymentInvoice{
		{DocEntry: invoice.DocEntry, SumApplied: toFloat(applied)},
	}
	return payment
}

func isSuccessfulSale(t shopify.Transaction) bool {
	kind := strings.ToUpper(t.Kind)
	if kind != "SALE" && kind != "CAPTURE" {
		return false
	}
	return strings.EqualFold(t.Status, "SUCCESS")
}
