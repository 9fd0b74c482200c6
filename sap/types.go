package sap

import "encoding/json"

// Request payloads use the ledger's exact field names. Monetary values are
// plain numbers on the wire; callers build them from decimal and round to two
// places before they land here.

type loginRequest struct {
	CompanyDB string `json:"CompanyDB"`
	UserName  string `json:"UserName"`
	Password  string `json:"Password"`
}

type loginResponse struct {
	SessionId      string `json:"SessionId"`
	SessionTimeout int    `json:"SessionTimeout"`
}

type BinAllocation struct {
	BinAbsEntry                   int     `json:"BinAbsEntry"`
	Quantity                      float64 `json:"Quantity"`
	AllowNegativeQuantity         string  `json:"AllowNegativeQuantity,omitempty"`
	SerialAndBatchNumbersBaseLine int     `json:"SerialAndBatchNumbersBaseLine"`
	BaseLineNumber                int     `json:"BaseLineNumber"`
}

type DocumentLine struct {
	ItemCode        string  `json:"ItemCode"`
	Quantity        float64 `json:"Quantity"`
	UnitPrice       float64 `json:"UnitPrice"`
	DiscountPercent float64 `json:"DiscountPercent"`
	WarehouseCode   string  `json:"WarehouseCode,omitempty"`

	CostingCode  string `json:"CostingCode,omitempty"`
	CostingCode2 string `json:"CostingCode2,omitempty"`
	CostingCode3 string `json:"CostingCode3,omitempty"`

	COGSCostingCode  string `json:"COGSCostingCode,omitempty"`
	COGSCostingCode2 string `json:"COGSCostingCode2,omitempty"`
	COGSCostingCode3 string `json:"COGSCostingCode3,omitempty"`

	// Base document references tie a credit-note line back to the invoice
	// line it reverses. Only set when the base invoice is open.
	BaseEntry *int `json:"BaseEntry,omitempty"`
	BaseType  *int `json:"BaseType,omitempty"`
	BaseLine  *int `json:"BaseLine,omitempty"`

	DocumentLinesBinAllocations []BinAllocation `json:"DocumentLinesBinAllocations,omitempty"`
}

type Document struct {
	CardCode        string `json:"CardCode"`
	DocDate         string `json:"DocDate,omitempty"`
	DocDueDate      string `json:"DocDueDate,omitempty"`
	NumAtCard       string `json:"NumAtCard,omitempty"`
	Comments        string `json:"Comments,omitempty"`
	Series          int    `json:"Series,omitempty"`
	SalesPersonCode int    `json:"SalesPersonCode,omitempty"`
	DocCurrency     string `json:"DocCurrency,omitempty"`
	ImportFileNum   string `json:"ImportFileNum,omitempty"`

	UPayType   int    `json:"U_Pay_type,omitempty"`
	UOrderType string `json:"U_OrderType,omitempty"`
	UGiftCard  string `json:"U_GiftCard,omitempty"`

	DocumentLines []DocumentLine `json:"DocumentLines"`
}

type DocumentLineResult struct {
	LineNum          int             `json:"LineNum"`
	ItemCode         string          `json:"ItemCode"`
	Quantity         json.Number     `json:"Quantity"`
	UnitPrice        json.Number     `json:"UnitPrice"`
	WarehouseCode    string          `json:"WarehouseCode"`
	CostingCode      string          `json:"CostingCode"`
	CostingCode2     string          `json:"CostingCode2"`
	CostingCode3     string          `json:"CostingCode3"`
	COGSCostingCode  string          `json:"COGSCostingCode"`
	COGSCostingCode2 string          `json:"COGSCostingCode2"`
	COGSCostingCode3 string          `json:"COGSCostingCode3"`

	DocumentLinesBinAllocations []BinAllocation `json:"DocumentLinesBinAllocations"`
}

type DocumentResult struct {
	DocEntry        int                  `json:"DocEntry"`
	DocNum          int                  `json:"DocNum"`
	DocTotal        json.Number          `json:"DocTotal"`
	TransNum        int                  `json:"TransNum"`
	CardCode        string               `json:"CardCode"`
	DocDate         string               `json:"DocDate"`
	NumAtCard       string               `json:"NumAtCard"`
	DocumentStatus  string               `json:"DocumentStatus"`
	SalesPersonCode int                  `json:"SalesPersonCode"`
	Series          int                  `json:"Series"`
	UPayType        json.Number          `json:"U_Pay_type"`
	DocumentLines   []DocumentLineResult `json:"DocumentLines"`
}

type PaymentInvoice struct {
	DocEntry    int     `json:"DocEntry"`
	SumApplied  float64 `json:"SumApplied"`
	InvoiceType string  `json:"InvoiceType,omitempty"`
}

type PaymentCreditCard struct {
	CreditCard        int     `json:"CreditCard"`
	CreditCardNumber  string  `json:"CreditCardNumber"`
	CardValidUntil    string  `json:"CardValidUntil"`
	VoucherNum        string  `json:"VoucherNum,omitempty"`
	PaymentMethodCode int     `json:"PaymentMethodCode"`
	CreditSum         float64 `json:"CreditSum"`
	CreditCur         string  `json:"CreditCur"`
	CreditType        string  `json:"CreditType"`
	SplitPayments     string  `json:"SplitPayments"`
}

type Payment struct {
	DocType  string `json:"DocType,omitempty"`
	CardCode string `json:"CardCode"`
	DocDate  string `json:"DocDate,omitempty"`
	Series   int    `json:"Series,omitempty"`
	Remarks  string `json:"Remarks,omitempty"`

	CashAccount     string  `json:"CashAccount,omitempty"`
	CashSum         float64 `json:"CashSum,omitempty"`
	TransferAccount string  `json:"TransferAccount,omitempty"`
	TransferSum     float64 `json:"TransferSum,omitempty"`

	PaymentInvoices    []PaymentInvoice    `json:"PaymentInvoices,omitempty"`
	PaymentCreditCards []PaymentCreditCard `json:"PaymentCreditCards,omitempty"`
}

type PaymentCreditCardResult struct {
	CreditCard        int         `json:"CreditCard"`
	CreditSum         json.Number `json:"CreditSum"`
	CreditCur         string      `json:"CreditCur"`
	PaymentMethodCode int         `json:"PaymentMethodCode"`
}

type PaymentResult struct {
	DocEntry        int         `json:"DocEntry"`
	DocNum          int         `json:"DocNum"`
	CardCode        string      `json:"CardCode"`
	Series          int         `json:"Series"`
	Cancelled       string      `json:"Cancelled"`
	CashAccount     string      `json:"CashAccount"`
	CashSum         json.Number `json:"CashSum"`
	TransferAccount string      `json:"TransferAccount"`
	TransferSum     json.Number `json:"TransferSum"`

	PaymentCreditCards []PaymentCreditCardResult `json:"PaymentCreditCards"`
}

type ReconciliationRow struct {
	TransId         int     `json:"TransId"`
	TransRowId      int     `json:"TransRowId"`
	SrcObjTyp       string  `json:"SrcObjTyp"`
	CreditOrDebit   string  `json:"CreditOrDebit"`
	ReconcileAmount float64 `json:"ReconcileAmount"`
	Selected        string  `json:"Selected"`
}

type InternalReconciliation struct {
	ReconDate     string              `json:"ReconDate"`
	CardOrAccount string              `json:"CardOrAccount"`
	Rows          []ReconciliationRow `json:"InternalReconciliationOpenTransRows"`
}

type InternalReconciliationResult struct {
	ReconNum int `json:"ReconNum"`
}

// valueCollection is the OData list envelope used by all query endpoints.
type valueCollection[T any] struct {
	Value []T `json:"value"`
}
