package syncservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mashura/salesbridge/config"
	"github.com/mashura/salesbridge/models"
)

// SyncPubSubPayload is the message published to request an async run.
type SyncPubSubPayload struct {
	Modules     []string `json:"modules,omitempty"`
	OrderId     string   `json:"order_id,omitempty"`
	TriggeredBy string   `json:"triggered_by,omitempty"`
}

// PubSubPushEnvelope matches the push-subscription delivery format.
type PubSubPushEnvelope struct {
	Message struct {
		Data      []byte `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// PublishSyncRun queues a sync run through Pub/Sub so the trigger returns
// immediately and the push subscription drives the actual work.
func PublishSyncRun(ctx context.Context, settings *config.Settings, payload SyncPubSubPayload) (string, error) {
	if settings.PubSubTopic == "" {
		return "", errors.New("PUBSUB_TOPIC is not configured")
	}
	return config.PublishJSON(ctx, settings.PubSubTopic, payload)
}

// PubSubPushHandler consumes push deliveries. Always acks (2xx) on malformed
// messages: redelivering garbage forever helps nobody.
func PubSubPushHandler(runner *Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var envelope PubSubPushEnvelope
		if err := c.ShouldBindJSON(&envelope); err != nil {
			c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": "malformed envelope"})
			return
		}

		var payload SyncPubSubPayload
		if len(envelope.Message.Data) > 0 {
			if err := json.Unmarshal(envelope.Message.Data, &payload); err != nil {
				c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": "malformed payload"})
				return
			}
		}
		if payload.TriggeredBy == "" {
			payload.TriggeredBy = models.SyncTriggeredPush
		}

		if payload.OrderId != "" {
			order, err := runner.storefront.GetOrder(c.Request.Context(), payload.OrderId)
			if err == nil {
				err = runner.orch.ProcessOrder(c.Request.Context(), order)
			}
			if err != nil {
				config.LogError(runner.logger, moduleName, "PubSubPushHandler", payload.OrderId, nil, err)
				// Nack so Pub/Sub redelivers transient failures.
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "synced"})
			return
		}

		if _, err := runner.RunOnce(c.Request.Context(), payload.Modules, payload.TriggeredBy, nil); err != nil {
			if errors.Is(err, ErrRunInProgress) {
				c.JSON(http.StatusOK, gin.H{"status": "skipped", "reason": "run in progress"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "done"})
	}
}

func decodeModules(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var modules []string
	if err := json.Unmarshal(raw, &modules); err != nil {
		return nil
	}
	return modules
}

// contextWithoutCancel detaches background runs from the request lifetime.
func contextWithoutCancel(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}
