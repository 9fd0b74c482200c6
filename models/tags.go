package models

import (
	"strconv"
	"strings"
)

// Storefront tag vocabulary. Tags mirror the persisted sync state so
// operators can see progress on the order page; the exact strings are load
// bearing because older orders already carry them and the idempotency checks
// read them back.
const (
	TagInvoiceSynced         = "sap_invoice_synced"
	TagPaymentSynced         = "sap_payment_synced"
	TagGiftCardInvoiceSynced = "sap_giftcard_invoice_synced"
	TagReturnSynced          = "sap_return_synced"
	TagReturnFailed          = "sap_return_failed"

	TagPrefixInvoice         = "sap_invoice_"
	TagPrefixPayment         = "sap_payment_"
	TagPrefixReturnCN        = "sap_return_cn_"
	TagPrefixGiftCardInvoice = "sap_giftcard_invoice_"
	TagPrefixOutgoingPayment = "sap_outgoing_payment_"
	TagPrefixReturn          = "sap_return_"
	TagPrefixGiftCard        = "giftcard_"
)

func TagInvoice(docEntry int) string {
	return TagPrefixInvoice + strconv.Itoa(docEntry)
}

func TagPayment(docEntry int) string {
	return TagPrefixPayment + strconv.Itoa(docEntry)
}

func TagReturnCreditNote(docEntry int) string {
	return TagPrefixReturnCN + strconv.Itoa(docEntry)
}

func TagGiftCardInvoice(docEntry int) string {
	return TagPrefixGiftCardInvoice + strconv.Itoa(docEntry)
}

func TagOutgoingPayment(docEntry int) string {
	return TagPrefixOutgoingPayment + strconv.Itoa(docEntry)
}

// TagReturn marks one specific return as settled. returnID may be a GraphQL
// global id; only the numeric part goes into the tag.
func TagReturn(returnID string) string {
	return TagPrefixReturn + numericSuffix(returnID)
}

func TagGiftCard(giftCardID string) string {
	return TagPrefixGiftCard + numericSuffix(giftCardID)
}

// DocEntryFromTag parses the numeric suffix of a doc-ref tag, e.g.
// ("sap_invoice_123", TagPrefixInvoice) -> 123. The blanket "_synced" tags
// carry no number and return false.
func DocEntryFromTag(tag, prefix string) (int, bool) {
	if !strings.HasPrefix(tag, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(tag[len(prefix):])
	if err != nil {
		return 0, false
	}
	return n, true
}

// FindDocEntryTag scans a tag list for the first numeric doc-ref tag with
// the prefix, skipping the blanket "_synced"/"_failed" markers.
func FindDocEntryTag(tags []string, prefix string) (int, bool) {
	for _, t := range tags {
		if entry, ok := DocEntryFromTag(t, prefix); ok {
			return entry, true
		}
	}
	return 0, false
}

func numericSuffix(gid string) string {
	if idx := strings.LastIndex(gid, "/"); idx >= 0 {
		return gid[idx+1:]
	}
	return gid
}

// Scenario is how a credited return is settled back to the customer.
type Scenario string

const (
	ScenarioStoreCredit Scenario = "store_credit"
	ScenarioRefund      Scenario = "refund"
)

// DetermineScenario forks on the order's financial status: fully refunded
// orders get their money back, everything else gets store credit.
func DetermineScenario(displayFinancialStatus string) Scenario {
	if strings.EqualFold(displayFinancialStatus, "refunded") {
		return ScenarioRefund
	}
	return ScenarioStoreCredit
}
