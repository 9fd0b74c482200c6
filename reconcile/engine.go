package reconcile

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/mashura/salesbridge/models"
	"github.com/mashura/salesbridge/sap"
	"github.com/mashura/salesbridge/shopify"
)

const moduleName = "reconcile"

// Storefront is the slice of the platform client the engine needs.
type Storefront interface {
	CreateGiftCard(ctx context.Context, amount decimal.Decimal, customerGID, note string) (*shopify.GiftCard, error)
	ListRecentGiftCards(ctx context.Context, first int) ([]shopify.GiftCard, error)
	AddOrderTag(ctx context.Context, orderGID, tag string) error
}

// Ledger is the slice of the accounting client the engine needs.
type Ledger interface {
	CreateInvoice(ctx context.Context, doc *sap.Document) (*sap.DocumentResult, error)
	GetInvoice(ctx context.Context, docEntry int) (*sap.DocumentResult, error)
	GetCreditNote(ctx context.Context, docEntry int) (*sap.DocumentResult, error)
	GetIncomingPayment(ctx context.Context, docEntry int) (*sap.PaymentResult, error)
	CreateOutgoingPayment(ctx context.Context, payment *sap.Payment) (*sap.PaymentResult, error)
	CreateInternalReconciliation(ctx context.Context, recon *sap.InternalReconciliation) (*sap.InternalReconciliationResult, error)
}

// StateRecorder persists the order sync state between steps, so a crash after
// an irreversible create (a gift card, an invoice) never loses the reference.
type StateRecorder interface {
	SaveState(ctx context.Context, state *models.OrderSyncState) error
}

// Engine settles a credited return back to the customer, either as store
// credit or as a refund through the original payment channel.
type Engine struct {
	storefront Storefront
	ledger     Ledger
	recorder   StateRecorder
	logger     *logrus.Logger
}

func NewEngine(storefront Storefront, ledger Ledger, recorder StateRecorder, logger *logrus.Logger) *Engine {
	return &Engine{
		storefront: storefront,
		ledger:     ledger,
		recorder:   recorder,
		logger:     logger,
	}
}

func amountOf(n json.Number) decimal.Decimal {
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (e *Engine) warn(funcName, msg string, fields logrus.Fields) {
	if e.logger == nil {
		return
	}
	if fields == nil {
		fields = logrus.Fields{}
	}
	fields["module"] = moduleName
	fields["funcName"] = funcName
	e.logger.WithFields(fields).Warn(msg)
}
