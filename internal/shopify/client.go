// Package shopify is the Admin GraphQL adapter behind the catalog
// interface. Reads and writes go through graphqlRequest, which retries
// throttled calls with capped exponential backoff.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	retryMax       = 5
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 10 * time.Second
)

// Config locates one shop's Admin API.
type Config struct {
	ShopDomain string
	Token      string
	APIVersion string
}

// Client is an Admin GraphQL client for a single shop.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a client. A nil httpClient falls back to
// http.DefaultClient.
func NewClient(config Config, httpClient *http.Client) *Client {
	return &Client{config: config, httpClient: httpClient}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message    string         `json:"message"`
	Extensions map[string]any `json:"extensions"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

func userErrorsToError(action string, errs []userError) error {
	if len(errs) == 0 {
		return nil
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		field := strings.Join(e.Field, ".")
		if field == "" {
			parts = append(parts, e.Message)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Message))
	}
	return fmt.Errorf("shopify %s failed: %s", action, strings.Join(parts, "; "))
}

type httpStatusError struct {
	statusCode int
	status     string
	body       string
}

func (e *httpStatusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("shopify request failed: %s", e.status)
	}
	return fmt.Sprintf("shopify request failed: %s: %s", e.status, e.body)
}

func isRetryableHTTPError(err error) bool {
	var httpErr *httpStatusError
	if errors.As(err, &httpErr) {
		switch httpErr.statusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}

func isThrottleError(errs []graphQLError) bool {
	for _, e := range errs {
		if strings.Contains(strings.ToLower(e.Message), "throttled") {
			return true
		}
		if code, ok := e.Extensions["code"].(string); ok && strings.EqualFold(code, "THROTTLED") {
			return true
		}
	}
	return false
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	delay := retryBaseDelay << attempt
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) endpoint() (string, error) {
	domain := strings.TrimSpace(c.config.ShopDomain)
	if domain == "" {
		return "", errors.New("shopify shop domain is empty")
	}
	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}
	domain = strings.TrimRight(domain, "/")
	if c.config.APIVersion == "" {
		return "", errors.New("shopify api version is empty")
	}
	return domain + "/admin/api/" + c.config.APIVersion + "/graphql.json", nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.config.Token)

	client := c.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpStatusError{
			statusCode: resp.StatusCode,
			status:     resp.Status,
			body:       strings.TrimSpace(string(respBody)),
		}
	}
	return respBody, nil
}

// graphqlRequest executes one query and decodes the data envelope into out.
// Throttled responses, both HTTP 429 and THROTTLED GraphQL errors, are
// retried up to retryMax times.
func (c *Client) graphqlRequest(ctx context.Context, query string, variables map[string]any, out any) error {
	endpoint, err := c.endpoint()
	if err != nil {
		return err
	}

	body, err := json.Marshal(graphQLRequest{Query: strings.TrimSpace(query), Variables: variables})
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= retryMax; attempt++ {
		if attempt > 0 {
			if err := sleepWithContext(ctx, retryDelay(attempt-1)); err != nil {
				return err
			}
		}

		raw, err := c.postJSON(ctx, endpoint, body)
		if err != nil {
			if isRetryableHTTPError(err) {
				lastErr = err
				continue
			}
			return err
		}

		var resp graphQLResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return fmt.Errorf("failed to decode graphql response: %w", err)
		}
		if len(resp.Errors) > 0 {
			if isThrottleError(resp.Errors) {
				lastErr = fmt.Errorf("shopify graphql throttled: %s", resp.Errors[0].Message)
				continue
			}
			messages := make([]string, 0, len(resp.Errors))
			for _, e := range resp.Errors {
				messages = append(messages, e.Message)
			}
			return fmt.Errorf("shopify graphql errors: %s", strings.Join(messages, "; "))
		}
		if out == nil {
			return nil
		}
		if len(resp.Data) == 0 {
			return errors.New("shopify graphql response missing data")
		}
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("failed to decode graphql data: %w", err)
		}
		return nil
	}
	return fmt.Errorf("shopify request gave up after %d retries: %w", retryMax, lastErr)
}
