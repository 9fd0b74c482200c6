package shopify

import (
	"context"
	"fmt"
)

const returnByIDQuery = `query returnById($id: ID!) {
	return(id: $id) {
		id
		name
		status
		order { id name }
		returnLineItems(first: 100) {
			nodes {
				... on ReturnLineItem {
					id
					quantity
					returnReason
					fulfillmentLineItem {
						id
						lineItem {
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
				}
			}
		}
		reverseFulfillmentOrders(first: 10) {
			nodes {
				lineItems(first: 100) {
					nodes {
						fulfillmentLineItem {
							id
							lineItem {
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
						dispositions {
							quantity
							type
							location { id }
						}
					}
				}
			}
		}
	}
}`

// GetReturn fetches the full return detail, including dispositions, which
// carry the restock location used to pick the credit-note warehouse.
func (c *Client) GetReturn(ctx context.Context, returnID string) (*Return, error) {
	gid := returnID
	if _, ok := asGID(returnID); !ok {
		gid = "gid://shopify/Return/" + returnID
	}
	var resp struct {
		Return *Return `json:"return"`
	}
	if err := c.execute(ctx, returnByIDQuery, map[string]any{"id": gid}, &resp); err != nil {
		return nil, fmt.Errorf("get return %s: %w", returnID, err)
	}
	if resp.Return == nil {
		return nil, fmt.Errorf("return %s not found", returnID)
	}
	return resp.Return, nil
}
