package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mashura/salesbridge/locations"
	"github.com/mashura/salesbridge/mapper"
	"github.com/mashura/salesbridge/models"
	"github.com/mashura/salesbridge/sap"
	"github.com/mashura/salesbridge/shopify"
)

// SettleRefund pays a credited return back through the channel the money came
// in on. The original incoming payment supplies the accounts; the credit note
// supplies the amount. Orders that never had a payment posted (or whose
// payment was cancelled) are skipped, not failed: there is nothing to refund
// from.
func (e *Engine) SettleRefund(ctx context.Context, order *shopify.Order, bundle locations.CostingBundle, creditNote *sap.DocumentResult, state *models.OrderSyncState) error {
	if state.OutgoingPaymentEntries.Contains(creditNote.DocEntry) {
		return nil
	}

	paymentEntry, ok := e.originalPaymentEntry(order, state)
	if !ok {
		e.warn("SettleRefund", "no incoming payment on record, skipping refund", logrus.Fields{"order": order.Name, "creditNote": creditNote.DocEntry})
		return nil
	}

	original, err := e.ledger.GetIncomingPayment(ctx, paymentEntry)
	if err != nil {
		return fmt.Errorf("load original payment %d: %w", paymentEntry, err)
	}
	if original.Cancelled == "tYES" {
		e.warn("SettleRefund", "original payment cancelled, skipping refund", logrus.Fields{"order": order.Name, "payment": paymentEntry})
		return nil
	}

	payment := mapper.BuildOutgoingPayment(order, bundle, creditNote, original, time.Now())
	result, err := e.ledger.CreateOutgoingPayment(ctx, payment)
	if err != nil {
		return fmt.Errorf("create outgoing payment for order %s: %w", order.Name, err)
	}

	// The outgoing payment entry doubles as the marker that this credit
	// note is settled; keyed by credit note so each return refunds once.
	state.OutgoingPaymentEntries = append(state.OutgoingPaymentEntries, creditNote.DocEntry)
	state.Stage = models.StageRefunded
	if err := e.recorder.SaveState(ctx, state); err != nil {
		return err
	}
	if err := e.storefront.AddOrderTag(ctx, order.ID, models.TagOutgoingPayment(result.DocEntry)); err != nil {
		e.warn("SettleRefund", "refund posted but tagging failed", logrus.Fields{"order": order.Name, "docEntry": result.DocEntry, "error": err.Error()})
	}
	return nil
}

// originalPaymentEntry finds the incoming payment to refund from: the state
// row first, then the payment tag. A zero entry ("0000" in legacy tags) means
// the order was never paid through the ledger.
func (e *Engine) originalPaymentEntry(order *shopify.Order, state *models.OrderSyncState) (int, bool) {
	if state.PaymentDocEntry != nil && *state.PaymentDocEntry > 0 {
		return *state.PaymentDocEntry, true
	}
	if entry, ok := models.FindDocEntryTag(order.Tags, models.TagPrefixPayment); ok && entry > 0 {
		return entry, true
	}
	return 0, false
}
