package shopify

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

const giftCardCreateMutation = `mutation giftCardCreate($input: GiftCardCreateInput!) {
	giftCardCreate(input: $input) {
		giftCard {
			id
			lastCharacters
			enabled
			createdAt
			balance { amount currencyCode }
			initialValue { amount currencyCode }
		}
		userErrors { field message }
	}
}`

const giftCardDeactivateMutation = `mutation giftCardDeactivate($id: ID!) {
	giftCardDeactivate(id: $id) {
		giftCard { id enabled }
		userErrors { field message }
	}
}`

const giftCardsQuery = `query giftCards($query: String, $first: Int!) {
	giftCards(first: $first, query: $query, sortKey: CREATED_AT, reverse: true) {
		nodes {
			id
			lastCharacters
			enabled
			createdAt
			balance { amount currencyCode }
			initialValue { amount currencyCode }
		}
	}
}`

// CreateGiftCard issues a store-credit gift card for the given amount.
func (c *Client) CreateGiftCard(ctx context.Context, amount decimal.Decimal, customerGID, note string) (*GiftCard, error) {
	input := map[string]any{
		"initialValue": amount.StringFixed(2),
		"note":         note,
	}
	if customerGID != "" {
		input["customerId"] = customerGID
	}
	var resp struct {
		GiftCardCreate struct {
			GiftCard   *GiftCard   `json:"giftCard"`
			UserErrors []UserError `json:"userErrors"`
		} `json:"giftCardCreate"`
	}
	if err := c.execute(ctx, giftCardCreateMutation, map[string]any{"input": input}, &resp); err != nil {
		return nil, fmt.Errorf("create gift card: %w", err)
	}
	if err := userErrorsToError("giftCardCreate", resp.GiftCardCreate.UserErrors); err != nil {
		return nil, err
	}
	if resp.GiftCardCreate.GiftCard == nil {
		return nil, fmt.Errorf("giftCardCreate returned no gift card")
	}
	return resp.GiftCardCreate.GiftCard, nil
}

// DeactivateGiftCard disables a gift card, e.g. when its invoice could not be
// posted and the credit must not remain spendable.
func (c *Client) DeactivateGiftCard(ctx context.Context, giftCardGID string) error {
	var resp struct {
		GiftCardDeactivate struct {
			UserErrors []UserError `json:"userErrors"`
		} `json:"giftCardDeactivate"`
	}
	if err := c.execute(ctx, giftCardDeactivateMutation, map[string]any{"id": giftCardGID}, &resp); err != nil {
		return fmt.Errorf("deactivate gift card %s: %w", giftCardGID, err)
	}
	return userErrorsToError("giftCardDeactivate", resp.GiftCardDeactivate.UserErrors)
}

// ListRecentGiftCards returns the most recently created gift cards. POS
// terminals issue their own store-credit cards; the reconciliation step looks
// here for one matching the credit amount before minting a duplicate.
func (c *Client) ListRecentGiftCards(ctx context.Context, first int) ([]GiftCard, error) {
	if first <= 0 {
		first = 50
	}
	var resp struct {
		GiftCards struct {
			Nodes []GiftCard `json:"nodes"`
		} `json:"giftCards"`
	}
	if err := c.execute(ctx, giftCardsQuery, map[string]any{"query": "enabled:true", "first": first}, &resp); err != nil {
		return nil, fmt.Errorf("list gift cards: %w", err)
	}
	return resp.GiftCards.Nodes, nil
}
