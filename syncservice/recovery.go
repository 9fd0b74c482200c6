package syncservice

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mashura/salesbridge/shopify"
)

// RecoverMissingPayments walks open cash-on-delivery invoices in the ledger
// and posts the incoming payment for any whose storefront order has since
// been paid. This catches orders that were invoiced before the courier
// collected the cash.
func (o *Orchestrator) RecoverMissingPayments(ctx context.Context) (recovered int, failed int) {
	invoices, err := o.ledger.FindOpenUnpaidInvoices(ctx)
	if err != nil {
		o.logError("RecoverMissingPayments", "", err)
		return 0, 1
	}

	for _, invoice := range invoices {
		if invoice.NumAtCard == "" {
			continue
		}
		order, err := o.storefront.GetOrderByName(ctx, "#"+invoice.NumAtCard)
		if err != nil {
			o.logError("RecoverMissingPayments", invoice.NumAtCard, err)
			failed++
			continue
		}

		status := strings.ToUpper(order.DisplayFinancialStatus)
		if status != "PAID" && status != "PARTIALLY_REFUNDED" {
			continue
		}

		bundle := o.locations.Resolve(order)
		state, err := o.states.LoadState(ctx, shopify.NumericID(order.ID), order.Name)
		if err != nil {
			o.logError("RecoverMissingPayments", order.Name, err)
			failed++
			continue
		}

		inv := invoice
		if err := o.ensurePayment(ctx, order, bundle, &inv, state); err != nil {
			o.logError("RecoverMissingPayments", order.Name, err)
			failed++
			continue
		}
		if o.logger != nil {
			o.logger.WithFields(logrus.Fields{
				"module": moduleName,
				"order":  order.Name,
			}).Info("recovered missing payment")
		}
		recovered++
	}
	return recovered, failed
}
