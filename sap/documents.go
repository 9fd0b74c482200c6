package sap

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Object type codes used in journal references.
const (
	ObjTypeInvoice    = "13"
	ObjTypeCreditNote = "14"
)

const invoiceSelect = "DocEntry,DocNum,DocTotal,CardCode,DocDate,NumAtCard,TransNum,DocumentStatus,SalesPersonCode,Series,U_Pay_type,DocumentLines"

func (c *Client) CreateInvoice(ctx context.Context, doc *Document) (*DocumentResult, error) {
	var result DocumentResult
	if err := c.do(ctx, http.MethodPost, "/Invoices", doc, &result); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	return &result, nil
}

func (c *Client) GetInvoice(ctx context.Context, docEntry int) (*DocumentResult, error) {
	path := fmt.Sprintf("/Invoices(%d)?$select=%s", docEntry, url.QueryEscape(invoiceSelect))
	var result DocumentResult
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("get invoice %d: %w", docEntry, err)
	}
	return &result, nil
}

// FindInvoiceByNumAtCard looks an invoice up by the storefront order name it
// was posted under. Returns nil when none exists.
func (c *Client) FindInvoiceByNumAtCard(ctx context.Context, numAtCard string) (*DocumentResult, error) {
	filter := fmt.Sprintf("NumAtCard eq '%s'", numAtCard)
	path := "/Invoices?$filter=" + url.QueryEscape(filter) +
		"&$select=" + url.QueryEscape(invoiceSelect) +
		"&$orderby=" + url.QueryEscape("DocEntry desc")

	var result valueCollection[DocumentResult]
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("find invoice by NumAtCard %q: %w", numAtCard, err)
	}
	if len(result.Value) == 0 {
		return nil, nil
	}
	return &result.Value[0], nil
}

// ReopenInvoice reverses a closed invoice back to open so a credit note can
// reference its lines.
func (c *Client) ReopenInvoice(ctx context.Context, docEntry int) error {
	path := fmt.Sprintf("/Invoices(%d)/Reopen", docEntry)
	if err := c.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("reopen invoice %d: %w", docEntry, err)
	}
	return nil
}

// FindOpenUnpaidInvoices returns invoices posted as cash-on-delivery
// (U_Pay_type 2) still waiting for a payment. The recovery pass walks these.
func (c *Client) FindOpenUnpaidInvoices(ctx context.Context) ([]DocumentResult, error) {
	filter := "U_Pay_type eq '2' and DocumentStatus eq 'bost_Open'"
	path := "/Invoices?$filter=" + url.QueryEscape(filter) +
		"&$select=" + url.QueryEscape("DocEntry,DocNum,DocTotal,CardCode,NumAtCard,Series")

	var result valueCollection[DocumentResult]
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("find open unpaid invoices: %w", err)
	}
	return result.Value, nil
}

func (c *Client) CreateCreditNote(ctx context.Context, doc *Document) (*DocumentResult, error) {
	var result DocumentResult
	if err := c.do(ctx, http.MethodPost, "/CreditNotes", doc, &result); err != nil {
		return nil, fmt.Errorf("create credit note: %w", err)
	}
	return &result, nil
}

func (c *Client) GetCreditNote(ctx context.Context, docEntry int) (*DocumentResult, error) {
	path := fmt.Sprintf("/CreditNotes(%d)?$select=%s", docEntry, url.QueryEscape("DocEntry,DocNum,DocTotal,CardCode,TransNum,DocumentStatus"))
	var result DocumentResult
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("get credit note %d: %w", docEntry, err)
	}
	return &result, nil
}

func (c *Client) CreateIncomingPayment(ctx context.Context, payment *Payment) (*PaymentResult, error) {
	var result PaymentResult
	if err := c.do(ctx, http.MethodPost, "/IncomingPayments", payment, &result); err != nil {
		return nil, fmt.Errorf("create incoming payment: %w", err)
	}
	return &result, nil
}

// GetIncomingPayment fetches the original payment so a refund can reuse its
// accounts and amounts.
func (c *Client) GetIncomingPayment(ctx context.Context, docEntry int) (*PaymentResult, error) {
	sel := "DocEntry,DocNum,TransferAccount,CashAccount,CardCode,CashSum,TransferSum,Series,Cancelled,PaymentCreditCards"
	path := fmt.Sprintf("/IncomingPayments(%d)?$select=%s", docEntry, url.QueryEscape(sel))
	var result PaymentResult
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("get incoming payment %d: %w", docEntry, err)
	}
	return &result, nil
}

// CreateOutgoingPayment posts a customer refund through the vendor payments
// endpoint with DocType rCustomer.
func (c *Client) CreateOutgoingPayment(ctx context.Context, payment *Payment) (*PaymentResult, error) {
	var result PaymentResult
	if err := c.do(ctx, http.MethodPost, "/VendorPayments", payment, &result); err != nil {
		return nil, fmt.Errorf("create outgoing payment: %w", err)
	}
	return &result, nil
}

func (c *Client) CreateInternalReconciliation(ctx context.Context, recon *InternalReconciliation) (*InternalReconciliationResult, error) {
	var result InternalReconciliationResult
	if err := c.do(ctx, http.MethodPost, "/InternalReconciliations", recon, &result); err != nil {
		return nil, fmt.Errorf("create internal reconciliation: %w", err)
	}
	return &result, nil
}
