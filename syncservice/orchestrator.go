package syncservice

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mashura/salesbridge/locations"
	"github.com/mashura/salesbridge/mapper"
	"github.com/mashura/salesbridge/models"
	"github.com/mashura/salesbridge/reconcile"
	"github.com/mashura/salesbridge/sap"
	"github.com/mashura/salesbridge/shopify"
	"github.com/mashura/salesbridge/tracking"
)

const moduleName = "syncservice"

// Storefront is everything the orchestrator needs from the platform client.
type Storefront interface {
	reconcile.Storefront
	GetOrder(ctx context.Context, orderID string) (*shopify.Order, error)
	GetOrderByName(ctx context.Context, name string) (*shopify.Order, error)
	FindOrdersToSync(ctx context.Context, since time.Time, closedTag string) ([]shopify.Order, error)
	FindOrdersWithOpenReturns(ctx context.Context, since time.Time) ([]shopify.Order, error)
	GetReturn(ctx context.Context, returnID string) (*shopify.Return, error)
	RemoveOrderTag(ctx context.Context, orderGID, tag string) error
}

// Ledger is everything the orchestrator needs from the accounting client.
type Ledger interface {
	reconcile.Ledger
	FindInvoiceByNumAtCard(ctx context.Context, numAtCard string) (*sap.DocumentResult, error)
	CreateCreditNote(ctx context.Context, doc *sap.Document) (*sap.DocumentResult, error)
	CreateIncomingPayment(ctx context.Context, payment *sap.Payment) (*sap.PaymentResult, error)
	ReopenInvoice(ctx context.Context, docEntry int) error
	FindOpenUnpaidInvoices(ctx context.Context) ([]sap.DocumentResult, error)
}

// StateStore persists per-order sync state plus the error and return mirrors.
type StateStore interface {
	LoadState(ctx context.Context, orderID, orderName string) (*models.OrderSyncState, error)
	SaveState(ctx context.Context, state *models.OrderSyncState) error
	RecordError(ctx context.Context, rec *models.SyncErrorRecord) error
	RecordProcessedReturn(ctx context.Context, rec *models.ProcessedReturnRecord) error
}

// Orchestrator drives one order through the financial lifecycle: invoice,
// payment, then any returns with their settlement. Every step checks the
// state row, the order tags and finally the ledger itself before creating
// anything, so reruns over settled orders write nothing.
type Orchestrator struct {
	storefront Storefront
	ledger     Ledger
	states     StateStore
	tracking   *tracking.Store
	locations  *locations.Resolver
	engine     *reconcile.Engine
	logger     *logrus.Logger
}

func NewOrchestrator(storefront Storefront, ledger Ledger, states StateStore, trackingStore *tracking.Store, resolver *locations.Resolver, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		storefront: storefront,
		ledger:     ledger,
		states:     states,
		tracking:   trackingStore,
		locations:  resolver,
		engine:     reconcile.NewEngine(storefront, ledger, states, logger),
		logger:     logger,
	}
}

// ProcessOrder runs the full pipeline for one order. Errors on the returns
// leg are isolated per return; an invoice or payment error aborts the order.
func (o *Orchestrator) ProcessOrder(ctx context.Context, order *shopify.Order) error {
	bundle := o.locations.Resolve(order)
	orderID := shopify.NumericID(order.ID)

	state, err := o.states.LoadState(ctx, orderID, order.Name)
	if err != nil {
		return fmt.Errorf("load state for order %s: %w", order.Name, err)
	}

	invoice, err := o.ensureInvoice(ctx, order, bundle, state)
	if err != nil {
		return err
	}

	if err := o.ensurePayment(ctx, order, bundle, invoice, state); err != nil {
		return err
	}

	return o.processReturns(ctx, order, bundle, invoice, state)
}

// ensureInvoice returns the ledger invoice for the order, creating it only
// when neither the state row, the tags nor the ledger know it yet.
func (o *Orchestrator) ensureInvoice(ctx context.Context, order *shopify.Order, bundle locations.CostingBundle, state *models.OrderSyncState) (*sap.DocumentResult, error) {
	if state.InvoiceDocEntry != nil {
		return o.ledger.GetInvoice(ctx, *state.InvoiceDocEntry)
	}

	if entry, ok := models.FindDocEntryTag(order.Tags, models.TagPrefixInvoice); ok {
		state.AdoptInvoice(entry)
		if err := o.states.SaveState(ctx, state); err != nil {
			return nil, err
		}
		return o.ledger.GetInvoice(ctx, entry)
	}

	// The tag may have been stripped; the ledger is the last word.
	existing, err := o.ledger.FindInvoiceByNumAtCard(ctx, mapper.OrderReference(order))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		o.adoptInvoice(ctx, order, state, existing.DocEntry)
		return existing, nil
	}

	doc := mapper.BuildInvoice(order, bundle, time.Now())
	if err := mapper.ValidateDocument(doc); err != nil {
		return nil, fmt.Errorf("invoice for order %s: %w", order.Name, err)
	}
	result, err := o.ledger.CreateInvoice(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("create invoice for order %s: %w", order.Name, err)
	}

	o.adoptInvoice(ctx, order, state, result.DocEntry)
	return result, nil
}

func (o *Orchestrator) adoptInvoice(ctx context.Context, order *shopify.Order, state *models.OrderSyncState, docEntry int) {
	state.AdoptInvoice(docEntry)
	if err := o.states.SaveState(ctx, state); err != nil {
		o.logError("adoptInvoice", order.Name, err)
	}
	o.addTags(ctx, order, models.TagInvoice(docEntry), models.TagInvoiceSynced)
}

// ensurePayment posts the incoming payment once the order is actually paid.
// Unpaid cash-on-delivery orders are left for the recovery pass.
func (o *Orchestrator) ensurePayment(ctx context.Context, order *shopify.Order, bundle locations.CostingBundle, invoice *sap.DocumentResult, state *models.OrderSyncState) error {
	if state.PaymentDocEntry != nil {
		return nil
	}
	if entry, ok := models.FindDocEntryTag(order.Tags, models.TagPrefixPayment); ok {
		state.AdoptPayment(entry)
		return o.states.SaveState(ctx, state)
	}
	if mapper.PayType(order) != mapper.PayTypePrepaid {
		return nil
	}

	payment := mapper.BuildIncomingPayment(order, bundle, invoice, time.Now())
	result, err := o.ledger.CreateIncomingPayment(ctx, payment)
	if err != nil {
		return fmt.Errorf("create payment for order %s: %w", order.Name, err)
	}

	state.AdoptPayment(result.DocEntry)
	if err := o.states.SaveState(ctx, state); err != nil {
		return err
	}
	o.addTags(ctx, order, models.TagPayment(result.DocEntry), models.TagPaymentSynced)
	return nil
}

func (o *Orchestrator) addTags(ctx context.Context, order *shopify.Order, tags ...string) {
	for _, tag := range tags {
		if order.HasTag(tag) {
			continue
		}
		if err := o.storefront.AddOrderTag(ctx, order.ID, tag); err != nil {
			o.logError("addTags", order.Name, err)
		}
	}
}

func (o *Orchestrator) logError(funcName, orderName string, err error) {
	if o.logger == nil {
		return
	}
	o.logger.WithFields(logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"order":    orderName,
	}).Error(err.Error())
}
