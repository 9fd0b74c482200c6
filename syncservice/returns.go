package syncservice

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mashura/salesbridge/locations"
	"github.com/mashura/salesbridge/mapper"
	"github.com/mashura/salesbridge/models"
	"github.com/mashura/salesbridge/sap"
	"github.com/mashura/salesbridge/shopify"
	"github.com/mashura/salesbridge/tracking"
)

// processReturns credits every unprocessed return on the order. One return
// failing is recorded and tagged but never blocks the others: independent
// returns must each get their own credit note.
func (o *Orchestrator) processReturns(ctx context.Context, order *shopify.Order, bundle locations.CostingBundle, invoice *sap.DocumentResult, state *models.OrderSyncState) error {
	orderID := shopify.NumericID(order.ID)
	var firstErr error

	for _, ret := range order.Returns.Nodes {
		status := strings.ToUpper(ret.Status)
		if status == "CANCELED" || status == "DECLINED" || status == "REQUESTED" {
			continue
		}
		returnID := shopify.NumericID(ret.ID)
		if o.tracking.IsReturnProcessed(orderID, returnID) || order.HasTag(models.TagReturn(ret.ID)) {
			continue
		}

		if err := o.processSingleReturn(ctx, order, bundle, invoice, ret.ID, state); err != nil {
			o.logError("processReturns", order.Name, err)
			o.addTags(ctx, order, models.TagReturnFailed)
			if recErr := o.states.RecordError(ctx, &models.SyncErrorRecord{
				OrderId:   orderID,
				OrderName: order.Name,
				ReturnId:  returnID,
				Step:      "return",
				Message:   err.Error(),
				Retryable: true,
			}); recErr != nil {
				o.logError("processReturns", order.Name, recErr)
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (o *Orchestrator) processSingleReturn(ctx context.Context, order *shopify.Order, bundle locations.CostingBundle, invoice *sap.DocumentResult, returnGID string, state *models.OrderSyncState) error {
	orderID := shopify.NumericID(order.ID)
	returnID := shopify.NumericID(returnGID)

	detail, err := o.storefront.GetReturn(ctx, returnGID)
	if err != nil {
		return err
	}

	items := o.extractReturnedItems(orderID, order, detail)
	if len(items) == 0 {
		// Everything in this return was already credited by an earlier one.
		o.addTags(ctx, order, models.TagReturn(returnGID))
		return nil
	}

	returnBundle := o.returnLocationBundle(bundle, items)

	creditNote, err := o.createCreditNote(ctx, order, returnBundle, invoice, items, state)
	if err != nil {
		return err
	}

	giftCardID := ""
	scenario := models.DetermineScenario(order.DisplayFinancialStatus)
	switch scenario {
	case models.ScenarioRefund:
		if err := o.engine.SettleRefund(ctx, order, returnBundle, creditNote, state); err != nil {
			return err
		}
	default:
		isPOS := o.locations.IsPOSOrder(order)
		if err := o.engine.SettleStoreCredit(ctx, order, returnBundle, creditNote, isPOS, state); err != nil {
			return err
		}
		giftCardID = state.GiftCardId
	}

	record := tracking.ProcessedReturn{
		ReturnID:        returnID,
		ProcessedAt:     time.Now().UTC(),
		CreditNoteEntry: creditNote.DocEntry,
		GiftCardID:      giftCardID,
	}
	for _, it := range items {
		record.Items = append(record.Items, tracking.ReturnedItemRecord{
			LineItemID:       it.LineItemID,
			SKU:              it.SKU,
			ReturnedQuantity: it.Quantity,
		})
	}
	if err := o.tracking.RecordReturn(orderID, order.Name, record); err != nil {
		return fmt.Errorf("record return %s: %w", returnID, err)
	}
	o.mirrorProcessedReturn(ctx, orderID, order.Name, record)

	if order.HasTag(models.TagReturnFailed) {
		if err := o.storefront.RemoveOrderTag(ctx, order.ID, models.TagReturnFailed); err != nil {
			o.logError("processSingleReturn", order.Name, err)
		}
	}
	o.addTags(ctx, order, models.TagReturn(returnGID), models.TagReturnSynced)

	now := time.Now().UTC()
	state.LastSyncedAt = &now
	return o.states.SaveState(ctx, state)
}

// createCreditNote posts the credit note for this return, reopening the base
// invoice first when it is closed and this is the order's first return. Later
// returns leave the invoice alone and post standalone credit notes.
func (o *Orchestrator) createCreditNote(ctx context.Context, order *shopify.Order, returnBundle locations.CostingBundle, invoice *sap.DocumentResult, items []mapper.ReturnedItem, state *models.OrderSyncState) (*sap.DocumentResult, error) {
	orderID := shopify.NumericID(order.ID)

	baseOpen := invoice.DocumentStatus == "bost_Open"
	if !baseOpen && !o.tracking.HasProcessedReturns(orderID) {
		if err := o.ledger.ReopenInvoice(ctx, invoice.DocEntry); err != nil {
			o.logError("createCreditNote", order.Name, err)
		} else {
			reopened, err := o.ledger.GetInvoice(ctx, invoice.DocEntry)
			if err == nil {
				invoice = reopened
				baseOpen = invoice.DocumentStatus == "bost_Open"
			}
		}
	}

	doc := mapper.BuildCreditNote(order, returnBundle, invoice, items, baseOpen, time.Now())
	if err := mapper.ValidateDocument(doc); err != nil {
		return nil, fmt.Errorf("credit note for order %s: %w", order.Name, err)
	}
	result, err := o.ledger.CreateCreditNote(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("create credit note for order %s: %w", order.Name, err)
	}

	state.AdoptCreditNote(result.DocEntry)
	if err := o.states.SaveState(ctx, state); err != nil {
		return nil, err
	}
	o.addTags(ctx, order, models.TagReturnCreditNote(result.DocEntry))
	return result, nil
}

// extractReturnedItems builds the credit lines for one return. Quantities are
// incremental: whatever earlier returns already credited for a line item is
// subtracted, so overlapping or replayed returns can never over-credit.
func (o *Orchestrator) extractReturnedItems(orderID string, order *shopify.Order, detail *shopify.Return) []mapper.ReturnedItem {
	raw := itemsFromDispositions(detail)
	if len(raw) == 0 {
		raw = itemsFromReturnLines(detail)
	}
	if len(raw) == 0 {
		raw = itemsFromQuantityDelta(order)
	}

	var out []mapper.ReturnedItem
	for _, it := range raw {
		already := o.tracking.ProcessedQuantity(orderID, it.LineItemID)
		qty := it.Quantity - already
		if qty <= 0 {
			continue
		}
		it.Quantity = qty
		out = append(out, it)
	}
	return out
}

// itemsFromDispositions is the preferred source: reverse fulfillment
// dispositions carry both the quantity and the restock location.
func itemsFromDispositions(detail *shopify.Return) []mapper.ReturnedItem {
	var out []mapper.ReturnedItem
	for _, rfo := range detail.ReverseFulfillmentOrders.Nodes {
		for _, line := range rfo.LineItems.Nodes {
			li := line.FulfillmentLineItem.LineItem
			qty := 0
			location := ""
			for _, d := range line.Dispositions {
				if strings.EqualFold(d.Type, "RESTOCKED") {
					qty += d.Quantity
					if location == "" {
						location = d.Location.ID
					}
				}
			}
			if qty == 0 {
				continue
			}
			out = append(out, mapper.ReturnedItem{
				LineItemID:        shopify.NumericID(li.ID),
				SKU:               li.SKU,
				Quantity:          qty,
				ListPrice:         mapper.ListPrice(li),
				SalePrice:         mapper.SalePrice(li),
				RestockLocationID: location,
			})
		}
	}
	return out
}

func itemsFromReturnLines(detail *shopify.Return) []mapper.ReturnedItem {
	var out []mapper.ReturnedItem
	for _, rli := range detail.ReturnLineItems.Nodes {
		if rli.Quantity <= 0 {
			continue
		}
		li := rli.FulfillmentLineItem.LineItem
		out = append(out, mapper.ReturnedItem{
			LineItemID: shopify.NumericID(li.ID),
			SKU:        li.SKU,
			Quantity:   rli.Quantity,
			ListPrice:  mapper.ListPrice(li),
			SalePrice:  mapper.SalePrice(li),
		})
	}
	return out
}

// itemsFromQuantityDelta is the last-resort source: the gap between ordered
// and current quantity on the order's own line items.
func itemsFromQuantityDelta(order *shopify.Order) []mapper.ReturnedItem {
	var out []mapper.ReturnedItem
	for _, li := range order.LineItems.Nodes {
		delta := li.Quantity - li.CurrentQuantity
		if delta <= 0 {
			continue
		}
		out = append(out, mapper.ReturnedItem{
			LineItemID: shopify.NumericID(li.ID),
			SKU:        li.SKU,
			Quantity:   delta,
			ListPrice:  mapper.ListPrice(li),
			SalePrice:  mapper.SalePrice(li),
		})
	}
	return out
}

// returnLocationBundle resolves where the goods physically went back. The
// credit note's warehouse follows the restock location; without one the
// order's own bundle stands.
func (o *Orchestrator) returnLocationBundle(orderBundle locations.CostingBundle, items []mapper.ReturnedItem) locations.CostingBundle {
	for _, it := range items {
		if it.RestockLocationID != "" {
			return o.locations.ResolveByLocationID(it.RestockLocationID)
		}
	}
	return orderBundle
}

func (o *Orchestrator) mirrorProcessedReturn(ctx context.Context, orderID, orderName string, record tracking.ProcessedReturn) {
	itemsJSON, err := json.Marshal(record.Items)
	if err != nil {
		itemsJSON = nil
	}
	if err := o.states.RecordProcessedReturn(ctx, &models.ProcessedReturnRecord{
		OrderId:         orderID,
		ReturnId:        record.ReturnID,
		OrderName:       orderName,
		CreditNoteEntry: record.CreditNoteEntry,
		GiftCardId:      record.GiftCardID,
		ItemsJSON:       itemsJSON,
		ProcessedAt:     record.ProcessedAt,
	}); err != nil {
		o.logError("mirrorProcessedReturn", orderName, err)
	}
}
