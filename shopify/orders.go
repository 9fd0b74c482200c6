package shopify

import (
	"context"
	"fmt"
	"time"
)

const orderFields = `
	id
	name
	tags
	createdAt
	displayFinancialStatus
	sourceIdentifier
	note
	totalPriceSet { shopMoney { amount currencyCode } }
	shippingAddress { address1 address2 city province zip country }
	customer { id displayName }
	lineItems(first: 100) {
		nodes {
			id
			name
			sku
			quantity
			currentQuantity
			originalUnitPriceSet { shopMoney { amount currencyCode } }
			discountedUnitPriceSet { shopMoney { amount currencyCode } }
			variant { id sku price compareAtPrice }
		}
	}
	transactions(first: 20) {
		id
		kind
		status
		gateway
		amountSet { shopMoney { amount currencyCode } }
	}
	returns(first: 20) {
		nodes { id name status }
	}`

var orderByIDQuery = fmt.Sprintf(`query orderById($id: ID!) {
	order(id: $id) { %s }
}`, orderFields)

var ordersSearchQuery = fmt.Sprintf(`query ordersSearch($query: String!, $first: Int!) {
	orders(first: $first, query: $query, sortKey: CREATED_AT) {
		nodes { %s }
	}
}`, orderFields)

// GetOrder fetches one order by GraphQL global id (or a plain numeric id).
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	gid := orderID
	if _, ok := asGID(orderID); !ok {
		gid = "gid://shopify/Order/" + orderID
	}
	var resp struct {
		Order *Order `json:"order"`
	}
	if err := c.execute(ctx, orderByIDQuery, map[string]any{"id": gid}, &resp); err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	if resp.Order == nil {
		return nil, fmt.Errorf("order %s not found", orderID)
	}
	return resp.Order, nil
}

// SearchOrders runs an order search query (Shopify search syntax) and returns
// up to first matching orders.
func (c *Client) SearchOrders(ctx context.Context, search string, first int) ([]Order, error) {
	if first <= 0 {
		first = 50
	}
	var resp struct {
		Orders struct {
			Nodes []Order `json:"nodes"`
		} `json:"orders"`
	}
	if err := c.execute(ctx, ordersSearchQuery, map[string]any{"query": search, "first": first}, &resp); err != nil {
		return nil, fmt.Errorf("search orders %q: %w", search, err)
	}
	return resp.Orders.Nodes, nil
}

// GetOrderByName looks an order up by its display name, e.g. "#1063".
func (c *Client) GetOrderByName(ctx context.Context, name string) (*Order, error) {
	orders, err := c.SearchOrders(ctx, fmt.Sprintf("name:%s", name), 1)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("order %s not found", name)
	}
	return &orders[0], nil
}

// FindOrdersToSync returns orders created inside the lookback window that have
// not been fully settled yet (no closing tag).
func (c *Client) FindOrdersToSync(ctx context.Context, since time.Time, closedTag string) ([]Order, error) {
	search := fmt.Sprintf("created_at:>='%s' AND -tag:'%s'", since.UTC().Format(time.RFC3339), closedTag)
	return c.SearchOrders(ctx, search, 250)
}

// FindOrdersWithOpenReturns returns orders inside the lookback window whose
// returns have not been marked settled.
func (c *Client) FindOrdersWithOpenReturns(ctx context.Context, since time.Time) ([]Order, error) {
	search := fmt.Sprintf("created_at:>='%s' AND return_status:in_progress", since.UTC().Format(time.RFC3339))
	return c.SearchOrders(ctx, search, 250)
}

func asGID(id string) (string, bool) {
	if len(id) > 6 && id[:6] == "gid://" {
		return id, true
	}
	return "", false
}
