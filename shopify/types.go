package shopify

import (
	"encoding/json"
	"strings"
)

// Typed DTOs for the storefront Admin GraphQL API. Amounts stay json.Number
// until a caller converts them to decimal; GraphQL connections keep their
// nodes shape instead of being flattened into ad-hoc maps.

type Money struct {
	Amount       json.Number `json:"amount"`
	CurrencyCode string      `json:"currencyCode"`
}

type MoneyBag struct {
	ShopMoney Money `json:"shopMoney"`
}

type Variant struct {
	ID             string      `json:"id"`
	SKU            string      `json:"sku"`
	Price          json.Number `json:"price"`
	CompareAtPrice json.Number `json:"compareAtPrice"`
}

type LineItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	SKU             string `json:"sku"`
	Quantity        int    `json:"quantity"`
	CurrentQuantity int    `json:"currentQuantity"`

	OriginalUnitPriceSet   MoneyBag `json:"originalUnitPriceSet"`
	DiscountedUnitPriceSet MoneyBag `json:"discountedUnitPriceSet"`
	Variant                *Variant `json:"variant"`
}

type Transaction struct {
	ID        string   `json:"id"`
	Kind      string   `json:"kind"`
	Status    string   `json:"status"`
	Gateway   string   `json:"gateway"`
	AmountSet MoneyBag `json:"amountSet"`
}

type Address struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Province string `json:"province"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
}

type ReturnSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type Order struct {
	ID                     string   `json:"id"`
	Name                   string   `json:"name"`
	Tags                   []string `json:"tags"`
	CreatedAt              string   `json:"createdAt"`
	DisplayFinancialStatus string   `json:"displayFinancialStatus"`
	SourceIdentifier       string   `json:"sourceIdentifier"`
	Note                   string   `json:"note"`
	TotalPriceSet          MoneyBag `json:"totalPriceSet"`

	// Nil for pickup and register orders; drives the order-type header.
	ShippingAddress *Address `json:"shippingAddress"`

	Customer struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
	} `json:"customer"`

	LineItems struct {
		Nodes []LineItem `json:"nodes"`
	} `json:"lineItems"`

	Transactions []Transaction `json:"transactions"`

	Returns struct {
		Nodes []ReturnSummary `json:"nodes"`
	} `json:"returns"`
}

type Disposition struct {
	Quantity int    `json:"quantity"`
	Type     string `json:"type"`
	Location struct {
		ID string `json:"id"`
	} `json:"location"`
}

type FulfillmentLineItem struct {
	ID       string   `json:"id"`
	LineItem LineItem `json:"lineItem"`
}

type ReturnLineItem struct {
	ID                  string              `json:"id"`
	Quantity            int                 `json:"quantity"`
	ReturnReason        string              `json:"returnReason"`
	FulfillmentLineItem FulfillmentLineItem `json:"fulfillmentLineItem"`
}

type ReverseFulfillmentOrderLineItem struct {
	FulfillmentLineItem FulfillmentLineItem `json:"fulfillmentLineItem"`
	Dispositions        []Disposition       `json:"dispositions"`
}

type ReverseFulfillmentOrder struct {
	LineItems struct {
		Nodes []ReverseFulfillmentOrderLineItem `json:"nodes"`
	} `json:"lineItems"`
}

type Return struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Order  struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"order"`
	ReturnLineItems struct {
		Nodes []ReturnLineItem `json:"nodes"`
	} `json:"returnLineItems"`
	ReverseFulfillmentOrders struct {
		Nodes []ReverseFulfillmentOrder `json:"nodes"`
	} `json:"reverseFulfillmentOrders"`
}

type GiftCard struct {
	ID             string `json:"id"`
	LastCharacters string `json:"lastCharacters"`
	Enabled        bool   `json:"enabled"`
	CreatedAt      string `json:"createdAt"`
	Balance        Money  `json:"balance"`
	InitialValue   Money  `json:"initialValue"`
}

type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// NumericID extracts the trailing numeric part of a GraphQL global id,
// e.g. "gid://shopify/Order/450789469" -> "450789469". Plain numeric ids
// pass through unchanged.
func NumericID(gid string) string {
	idx := strings.LastIndex(gid, "/")
	if idx < 0 {
		return gid
	}
	return gid[idx+1:]
}

// HasTag reports whether the order carries the exact tag.
func (o *Order) HasTag(tag string) bool {
	for _, t := range o.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// TagWithPrefix returns the first tag carrying the prefix, e.g.
// TagWithPrefix("sap_invoice_") finds "sap_invoice_10293".
func (o *Order) TagWithPrefix(prefix string) (string, bool) {
	for _, t := range o.Tags {
		if strings.HasPrefix(t, prefix) {
			return t, true
		}
	}
	return "", false
}
