package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Client is a minimal Admin GraphQL API client. All calls go through a shared
// rate limiter so bursts of orders never trip the platform's cost throttling.
type Client struct {
	shopDomain string
	token      string
	apiVersion string
	http       *http.Client
	limiter    <-chan time.Time
	logger     *logrus.Logger
}

func NewClient(shopDomain, token, apiVersion string, logger *logrus.Logger) (*Client, error) {
	shopDomain = strings.TrimSpace(shopDomain)
	if shopDomain == "" {
		return nil, errors.New("shop domain is empty")
	}
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("shopify access token is empty")
	}
	if strings.TrimSpace(apiVersion) == "" {
		apiVersion = "2024-10"
	}

	rateLimitPerMin := int64(60)
	if v := strings.TrimSpace(os.Getenv("SHOPIFY_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimitPerMin = n
		}
	}
	interval := time.Minute / time.Duration(rateLimitPerMin)

	return &Client{
		shopDomain: strings.TrimSuffix(shopDomain, "/"),
		token:      token,
		apiVersion: apiVersion,
		http:       &http.Client{Timeout: 30 * time.Second},
		limiter:    time.Tick(interval),
		logger:     logger,
	}, nil
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// execute runs one GraphQL operation and unmarshals the data envelope into out.
func (c *Client) execute(ctx context.Context, query string, variables map[string]any, out any) error {
	<-c.limiter

	endpoint := fmt.Sprintf("https://%s/admin/api/%s/graphql.json", c.shopDomain, c.apiVersion)
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("shopify api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed graphqlResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("decode shopify response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		msgs := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("shopify graphql error: %s", strings.Join(msgs, "; "))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(parsed.Data, out); err != nil {
		return fmt.Errorf("decode shopify data: %w", err)
	}
	return nil
}

func userErrorsToError(op string, errs []UserError) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return fmt.Errorf("%s: %s", op, strings.Join(msgs, "; "))
}
