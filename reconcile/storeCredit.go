package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/mashura/salesbridge/locations"
	"github.com/mashura/salesbridge/mapper"
	"github.com/mashura/salesbridge/models"
	"github.com/mashura/salesbridge/sap"
	"github.com/mashura/salesbridge/shopify"
)

// POS terminals issue their own store-credit cards; match by value before
// minting a duplicate.
var giftCardMatchTolerance = decimal.NewFromFloat(0.01)

// SettleStoreCredit issues store credit for a credit note: a gift card sized
// to the credit-note total, a gift-card invoice for the same amount, and an
// internal reconciliation closing the credit note against that invoice.
// Every step re-checks persisted state and tags so a rerun picks up exactly
// where the last attempt stopped.
func (e *Engine) SettleStoreCredit(ctx context.Context, order *shopify.Order, bundle locations.CostingBundle, creditNote *sap.DocumentResult, isPOS bool, state *models.OrderSyncState) error {
	amount := amountOf(creditNote.DocTotal)
	if !amount.IsPositive() {
		e.warn("SettleStoreCredit", "credit note total is zero, nothing to settle", logrus.Fields{"order": order.Name, "creditNote": creditNote.DocEntry})
		return nil
	}

	giftCardID, err := e.ensureGiftCard(ctx, order, amount, isPOS, state)
	if err != nil {
		return err
	}

	invoice, err := e.ensureGiftCardInvoice(ctx, order, bundle, giftCardID, amount, state)
	if err != nil {
		return err
	}

	// Already reconciled on a previous run.
	if order.HasTag(models.TagGiftCardInvoiceSynced) && state.Stage == models.StageStoreCredited {
		return nil
	}

	cnTransNum := creditNote.TransNum
	if cnTransNum == 0 {
		full, err := e.ledger.GetCreditNote(ctx, creditNote.DocEntry)
		if err != nil {
			return err
		}
		cnTransNum = full.TransNum
	}

	recon := mapper.BuildReconciliation(cnTransNum, invoice.TransNum, amount, time.Now())
	if _, err := e.ledger.CreateInternalReconciliation(ctx, recon); err != nil {
		return fmt.Errorf("reconcile credit note %d with gift card invoice %d: %w", creditNote.DocEntry, invoice.DocEntry, err)
	}

	if err := e.storefront.AddOrderTag(ctx, order.ID, models.TagGiftCardInvoiceSynced); err != nil {
		e.warn("SettleStoreCredit", "reconciled but tagging failed", logrus.Fields{"order": order.Name, "error": err.Error()})
	}
	state.Stage = models.StageStoreCredited
	return e.recorder.SaveState(ctx, state)
}

// ensureGiftCard finds or creates the store-credit gift card and durably
// records its id (state row + tag) before anything else happens, so a crash
// right after creation cannot orphan a spendable card.
func (e *Engine) ensureGiftCard(ctx context.Context, order *shopify.Order, amount decimal.Decimal, isPOS bool, state *models.OrderSyncState) (string, error) {
	if state.GiftCardId != "" {
		return state.GiftCardId, nil
	}
	if tag, ok := order.TagWithPrefix(models.TagPrefixGiftCard); ok {
		state.GiftCardId = strings.TrimPrefix(tag, models.TagPrefixGiftCard)
		return state.GiftCardId, e.recorder.SaveState(ctx, state)
	}

	var giftCardID string
	if isPOS {
		// The register app may already have issued the card.
		if id, ok := e.findMatchingGiftCard(ctx, amount); ok {
			giftCardID = id
		}
	}
	if giftCardID == "" {
		note := fmt.Sprintf("Store credit for return on order %s", order.Name)
		card, err := e.storefront.CreateGiftCard(ctx, amount, order.Customer.ID, note)
		if err != nil {
			return "", fmt.Errorf("create gift card for order %s: %w", order.Name, err)
		}
		giftCardID = shopify.NumericID(card.ID)
	}

	state.GiftCardId = giftCardID
	if err := e.recorder.SaveState(ctx, state); err != nil {
		return "", fmt.Errorf("record gift card %s: %w", giftCardID, err)
	}
	if err := e.storefront.AddOrderTag(ctx, order.ID, models.TagGiftCard(giftCardID)); err != nil {
		e.warn("ensureGiftCard", "gift card recorded but tagging failed", logrus.Fields{"order": order.Name, "giftCard": giftCardID, "error": err.Error()})
	}
	return giftCardID, nil
}

func (e *Engine) findMatchingGiftCard(ctx context.Context, amount decimal.Decimal) (string, bool) {
	cards, err := e.storefront.ListRecentGiftCards(ctx, 50)
	if err != nil {
		e.warn("findMatchingGiftCard", "gift card lookup failed, will create a new one", logrus.Fields{"error": err.Error()})
		return "", false
	}
	for _, card := range cards {
		if !card.Enabled {
			continue
		}
		value, err := decimal.NewFromString(card.InitialValue.Amount.String())
		if err != nil {
			continue
		}
		if value.Sub(amount).Abs().LessThan(giftCardMatchTolerance) {
			return shopify.NumericID(card.ID), true
		}
	}
	return "", false
}

func (e *Engine) ensureGiftCardInvoice(ctx context.Context, order *shopify.Order, bundle locations.CostingBundle, giftCardID string, amount decimal.Decimal, state *models.OrderSyncState) (*sap.DocumentResult, error) {
	if state.GiftCardInvoiceDocEntry != nil {
		return e.ledger.GetInvoice(ctx, *state.GiftCardInvoiceDocEntry)
	}
	if entry, ok := models.FindDocEntryTag(order.Tags, models.TagPrefixGiftCardInvoice); ok {
		state.GiftCardInvoiceDocEntry = &entry
		if err := e.recorder.SaveState(ctx, state); err != nil {
			return nil, err
		}
		return e.ledger.GetInvoice(ctx, entry)
	}

	currency := order.TotalPriceSet.ShopMoney.CurrencyCode
	doc := mapper.BuildGiftCardInvoice(order, bundle, giftCardID, amount, currency, time.Now())
	if err := mapper.ValidateDocument(doc); err != nil {
		return nil, fmt.Errorf("gift card invoice for order %s: %w", order.Name, err)
	}
	result, err := e.ledger.CreateInvoice(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("create gift card invoice for order %s: %w", order.Name, err)
	}

	state.GiftCardInvoiceDocEntry = &result.DocEntry
	if err := e.recorder.SaveState(ctx, state); err != nil {
		return nil, err
	}
	if err := e.storefront.AddOrderTag(ctx, order.ID, models.TagGiftCardInvoice(result.DocEntry)); err != nil {
		e.warn("ensureGiftCardInvoice", "invoice posted but tagging failed", logrus.Fields{"order": order.Name, "docEntry": result.DocEntry, "error": err.Error()})
	}
	return result, nil
}
