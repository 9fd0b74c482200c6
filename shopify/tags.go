package shopify

import (
	"context"
	"fmt"
	"time"

	"github.com/mashura/salesbridge/config"
)

const moduleName = "shopify"

const tagsAddMutation = `mutation tagsAdd($id: ID!, $tags: [String!]!) {
	tagsAdd(id: $id, tags: $tags) {
		userErrors { field message }
	}
}`

const tagsRemoveMutation = `mutation tagsRemove($id: ID!, $tags: [String!]!) {
	tagsRemove(id: $id, tags: $tags) {
		userErrors { field message }
	}
}`

const tagMutationAttempts = 3

// AddOrderTag adds one tag to the order, retrying with exponential backoff.
// Tags are the operator-visible mirror of sync state, so a transient failure
// here is worth a few retries before giving up.
func (c *Client) AddOrderTag(ctx context.Context, orderGID, tag string) error {
	return c.mutateTags(ctx, tagsAddMutation, "tagsAdd", orderGID, tag)
}

// RemoveOrderTag removes one tag from the order with the same retry policy.
func (c *Client) RemoveOrderTag(ctx context.Context, orderGID, tag string) error {
	return c.mutateTags(ctx, tagsRemoveMutation, "tagsRemove", orderGID, tag)
}

func (c *Client) mutateTags(ctx context.Context, mutation, op, orderGID, tag string) error {
	var lastErr error
	for attempt := 1; attempt <= tagMutationAttempts; attempt++ {
		var resp map[string]struct {
			UserErrors []UserError `json:"userErrors"`
		}
		err := c.execute(ctx, mutation, map[string]any{"id": orderGID, "tags": []string{tag}}, &resp)
		if err == nil {
			err = userErrorsToError(op, resp[op].UserErrors)
		}
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < tagMutationAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(1<<attempt) * time.Second):
			}
		}
	}
	config.LogError(c.logger, moduleName, "mutateTags", op, map[string]string{"order": orderGID, "tag": tag}, lastErr)
	return fmt.Errorf("%s %q on %s: %w", op, tag, orderGID, lastErr)
}
