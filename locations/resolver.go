package locations

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mashura/salesbridge/shopify"
)

const moduleName = "locations"

// Defaults applied when a bundle leaves a field empty. Kept loose on purpose:
// a misconfigured location must degrade to the web defaults, never fail an
// order.
const (
	DefaultSeries        = 82
	DefaultGroupCode     = 110
	DefaultSalesEmployee = 28
	DefaultLocationCC    = "ONL"
	DefaultDepartmentCC  = "SAL"
	DefaultActivityCC    = "OnlineS"
	DefaultLocationKey   = "SW"
	LocationTypeOnline   = "online"
	LocationTypeStore    = "store"
)

// POS orders carry "<locationId>-<receiptNumber>" in sourceIdentifier.
var posSourcePattern = regexp.MustCompile(`^(\d+)-(.+)$`)

// SeriesSet holds the ledger numbering series per document type.
type SeriesSet struct {
	Invoices         int `json:"invoices"`
	CreditNotes      int `json:"credit_notes"`
	IncomingPayments int `json:"incoming_payments"`
	OutgoingPayments int `json:"outgoing_payments"`
}

// CostingBundle is everything document mapping needs to know about the
// location an order was sold from.
type CostingBundle struct {
	Key          string `json:"-"`
	Warehouse    string `json:"warehouse"`
	LocationCC   string `json:"location_cc"`
	DepartmentCC string `json:"department_cc"`
	ActivityCC   string `json:"activity_cc"`

	Type   string    `json:"type"`
	Series SeriesSet `json:"series"`

	CashAccount   string            `json:"cash"`
	Credit        map[string]string `json:"credit"`
	BankTransfers map[string]string `json:"bank_transfers"`
	Cards         map[string]int    `json:"cards"`

	SalesEmployee int    `json:"sales_employee"`
	GroupCode     int    `json:"group_code"`
	CustomerCode  string `json:"customer_code"`
}

func (b CostingBundle) IsOnline() bool { return b.Type != LocationTypeStore }

// SeriesFor returns the numbering series for a document type, falling back to
// the shared default when unconfigured.
func (b CostingBundle) SeriesFor(docType string) int {
	var s int
	switch docType {
	case "invoice":
		s = b.Series.Invoices
	case "credit_note":
		s = b.Series.CreditNotes
	case "incoming_payment":
		s = b.Series.IncomingPayments
	case "outgoing_payment":
		s = b.Series.OutgoingPayments
	}
	if s == 0 {
		return DefaultSeries
	}
	return s
}

// PaymentAccount returns the ledger account for a gateway. Credit gateways
// are checked first, then bank transfers, then the cash account.
func (b CostingBundle) PaymentAccount(gateway string) (account string, isCash bool) {
	gw := strings.ToLower(strings.TrimSpace(gateway))
	if acct, ok := b.Credit[gw]; ok && acct != "" {
		return acct, false
	}
	if acct, ok := b.BankTransfers[gw]; ok && acct != "" {
		return acct, false
	}
	return b.CashAccount, true
}

// TenderClass says how one gateway settles on a payment document.
type TenderClass int

const (
	TenderCash TenderClass = iota
	TenderTransfer
	TenderCard
)

// Tender is the resolved settlement channel for a gateway: card gateways
// carry the ledger card code, transfer gateways their account, everything
// unmapped falls back to cash.
type Tender struct {
	Class    TenderClass
	Account  string
	CardCode int
}

// TenderFor classifies a gateway for payment building. Card gateways are
// checked first so a gateway listed in both tables settles as a card row.
func (b CostingBundle) TenderFor(gateway string) Tender {
	gw := strings.ToLower(strings.TrimSpace(gateway))
	if code, ok := b.Cards[gw]; ok && code != 0 {
		return Tender{Class: TenderCard, CardCode: code}
	}
	if acct, ok := b.Credit[gw]; ok && acct != "" {
		return Tender{Class: TenderTransfer, Account: acct}
	}
	if acct, ok := b.BankTransfers[gw]; ok && acct != "" {
		return Tender{Class: TenderTransfer, Account: acct}
	}
	return Tender{Class: TenderCash, Account: b.CashAccount}
}

// Mapping is the full per-store location configuration document.
type Mapping struct {
	DefaultLocation string                   `json:"default_location"`
	Locations       map[string]CostingBundle `json:"locations"`
}

// LoadMapping reads the location mapping JSON file.
func LoadMapping(path string) (*Mapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read location mapping: %w", err)
	}
	var m Mapping
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse location mapping: %w", err)
	}
	if m.DefaultLocation == "" {
		m.DefaultLocation = DefaultLocationKey
	}
	if len(m.Locations) == 0 {
		return nil, fmt.Errorf("location mapping has no locations")
	}
	return &m, nil
}

// Resolver maps orders to costing bundles. Resolution never fails: anything
// unrecognized lands on the channel default bundle.
type Resolver struct {
	mapping *Mapping
	logger  *logrus.Logger
}

func NewResolver(mapping *Mapping, logger *logrus.Logger) *Resolver {
	return &Resolver{mapping: mapping, logger: logger}
}

// IsPOSOrder reports whether the order originated at a register.
func (r *Resolver) IsPOSOrder(order *shopify.Order) bool {
	return posSourcePattern.MatchString(order.SourceIdentifier)
}

// ReceiptNumber returns the register receipt number for POS orders, empty
// otherwise.
func (r *Resolver) ReceiptNumber(order *shopify.Order) string {
	m := posSourcePattern.FindStringSubmatch(order.SourceIdentifier)
	if m == nil {
		return ""
	}
	return m[2]
}

// Resolve picks the costing bundle for an order: POS orders resolve by the
// location id embedded in sourceIdentifier, everything else gets the default
// web bundle.
func (r *Resolver) Resolve(order *shopify.Order) CostingBundle {
	if m := posSourcePattern.FindStringSubmatch(order.SourceIdentifier); m != nil {
		return r.ResolveByLocationID(m[1])
	}
	return r.defaultBundle()
}

// ResolveByLocationID resolves a bundle by location id (numeric or gid form).
// Unknown ids log a warning and fall back to the default bundle.
func (r *Resolver) ResolveByLocationID(locationID string) CostingBundle {
	key := shopify.NumericID(locationID)
	if b, ok := r.mapping.Locations[key]; ok {
		return r.normalize(key, b)
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{
			"module":     moduleName,
			"locationId": locationID,
		}).Warn("unknown location, falling back to default bundle")
	}
	return r.defaultBundle()
}

func (r *Resolver) defaultBundle() CostingBundle {
	if b, ok := r.mapping.Locations[r.mapping.DefaultLocation]; ok {
		return r.normalize(r.mapping.DefaultLocation, b)
	}
	// Even a broken mapping yields a usable bundle.
	return r.normalize(DefaultLocationKey, CostingBundle{Warehouse: DefaultLocationKey, Type: LocationTypeOnline})
}

func (r *Resolver) normalize(key string, b CostingBundle) CostingBundle {
	b.Key = key
	if b.LocationCC == "" {
		b.LocationCC = DefaultLocationCC
	}
	if b.DepartmentCC == "" {
		b.DepartmentCC = DefaultDepartmentCC
	}
	if b.ActivityCC == "" {
		b.ActivityCC = DefaultActivityCC
	}
	if b.SalesEmployee == 0 {
		b.SalesEmployee = DefaultSalesEmployee
	}
	if b.GroupCode == 0 {
		b.GroupCode = DefaultGroupCode
	}
	if b.Type == "" {
		b.Type = LocationTypeOnline
	}
	return b
}
