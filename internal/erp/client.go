// Package erp talks to the ERP REST API. Client implements the import gateway
// over HTTP and pages through the remote catalog for synchronisation.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"gyscontrol/internal"
	"gyscontrol/internal/config"
	"gyscontrol/internal/logging"
	"gyscontrol/internal/pipeline"
)

var _ pipeline.Gateway = (*Client)(nil)

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
	backoff    time.Duration
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

// APIError is a non-2xx answer that was not retried or ran out of attempts.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("erp api error: status=%d body=%s", e.Status, e.Body)
}

type scrollPayload struct {
	Entries  []internal.CatalogEntry `json:"entries"`
	ScrollID *string                 `json:"scrollId"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.ERPTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.ERPRateLimitRPS),
		backoff:    250 * time.Millisecond,
	}
}

// ScrollCatalog pages through every remote catalog entry.
func (c *Client) ScrollCatalog(ctx context.Context) ([]internal.CatalogEntry, error) {
	all := []internal.CatalogEntry{}
	seen := map[string]struct{}{}
	var scrollID string

	for {
		query := map[string]string{}
		if scrollID != "" {
			query["scrollId"] = scrollID
		}

		var payload scrollPayload
		if err := c.call(ctx, http.MethodGet, "catalog/scroll", query, nil, &payload); err != nil {
			return nil, err
		}
		for _, e := range payload.Entries {
			if strings.TrimSpace(e.ID) == "" || strings.TrimSpace(e.Code) == "" {
				continue
			}
			all = append(all, e)
		}

		if payload.ScrollID == nil || *payload.ScrollID == "" || len(payload.Entries) == 0 {
			break
		}
		if _, ok := seen[*payload.ScrollID]; ok {
			break
		}
		seen[*payload.ScrollID] = struct{}{}
		scrollID = *payload.ScrollID
	}
	return all, nil
}

func (c *Client) FindCatalogEntry(ctx context.Context, row internal.ImportRow) (*internal.CatalogEntry, error) {
	var out *internal.CatalogEntry
	query := map[string]string{"code": strings.TrimSpace(row.Code), "description": strings.TrimSpace(row.Description)}
	if err := c.call(ctx, http.MethodGet, "catalog/lookup", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FindQuotedItem(ctx context.Context, projectID string, row internal.ImportRow) (*internal.QuotedItemOption, error) {
	var out *internal.QuotedItemOption
	endpoint := "projects/" + url.PathEscape(projectID) + "/quoted-items/lookup"
	if err := c.call(ctx, http.MethodGet, endpoint, map[string]string{"code": strings.TrimSpace(row.Code)}, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FetchQuotedItems(ctx context.Context, projectID string) ([]internal.EquipmentGroup, error) {
	var out struct {
		Groups []internal.EquipmentGroup `json:"groups"`
	}
	endpoint := "projects/" + url.PathEscape(projectID) + "/quoted-items"
	if err := c.call(ctx, http.MethodGet, endpoint, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Groups, nil
}

func (c *Client) CreateCatalogEntries(ctx context.Context, payloads []internal.CatalogEntryPayload) error {
	if len(payloads) == 0 {
		return nil
	}
	body := map[string]any{"entries": payloads}
	return c.call(ctx, http.MethodPost, "catalog/entries", nil, body, nil)
}

func (c *Client) ImportLinked(ctx context.Context, listID string, quotedItemIDs []string, overrides []internal.QuantityOverride) error {
	if len(quotedItemIDs) == 0 {
		return nil
	}
	body := map[string]any{"quotedItemIds": quotedItemIDs, "quantityOverrides": overrides}
	return c.call(ctx, http.MethodPost, listEndpoint(listID, "linked"), nil, body, nil)
}

func (c *Client) ImportReplacement(ctx context.Context, listID, groupID string, replacements []internal.Replacement, actorID string) error {
	if len(replacements) == 0 {
		return nil
	}
	body := map[string]any{"groupId": groupID, "replacements": replacements, "actorId": actorID}
	return c.call(ctx, http.MethodPost, listEndpoint(listID, "replacements"), nil, body, nil)
}

func (c *Client) ImportFromCatalog(ctx context.Context, listID, groupID string, catalogIDs []string, quantities map[string]float64, actorID string) error {
	if len(catalogIDs) == 0 {
		return nil
	}
	body := map[string]any{"groupId": groupID, "catalogIds": catalogIDs, "quantities": quantities, "actorId": actorID}
	return c.call(ctx, http.MethodPost, listEndpoint(listID, "catalog"), nil, body, nil)
}

func (c *Client) ImportDirect(ctx context.Context, listID, groupID string, rows []internal.ImportRow, actorID string) error {
	if len(rows) == 0 {
		return nil
	}
	body := map[string]any{"groupId": groupID, "rows": rows, "actorId": actorID}
	return c.call(ctx, http.MethodPost, listEndpoint(listID, "direct"), nil, body, nil)
}

func listEndpoint(listID, path string) string {
	return "lists/" + url.PathEscape(listID) + "/items/" + path
}

func (c *Client) call(ctx context.Context, method, endpoint string, params map[string]string, body any, out any) error {
	data, err := c.fetchJSON(ctx, method, endpoint, params, body)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "decode %s", endpoint)
	}
	return nil
}

// fetchJSON issues the request with retries on transport errors and on
// 429/5xx answers, and returns the "data" member of a successful envelope.
func (c *Client) fetchJSON(ctx context.Context, method, endpoint string, params map[string]string, body any) ([]byte, error) {
	if err := c.cfg.Require("ERP_API_TOKEN", c.cfg.ERPAPIToken); err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(c.cfg.ERPAPIBaseURL, "/") + "/"
	u, err := url.Parse(baseURL + endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "parse url")
	}
	q := u.Query()
	for k, v := range params {
		if strings.TrimSpace(v) != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode body")
		}
	}

	maxAttempts := c.cfg.ERPMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	log := logging.Ctx(ctx)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := c.backoff << (attempt - 2)
			backoff += time.Duration(rand.Int63n(int64(backoff)/4 + 1))
			log.Warn().Err(lastErr).Str("endpoint", endpoint).Int("attempt", attempt).Dur("backoff", backoff).Msg("retrying erp request")
			if err := sleepCtx(ctx, backoff); err != nil {
				return nil, err
			}
		}
		waited, err := c.limiter.WaitTurn(ctx)
		if err != nil {
			return nil, err
		}
		if waited > 0 {
			log.Debug().Str("endpoint", endpoint).Dur("waited", waited).Msg("erp rate limit")
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
		if err != nil {
			return nil, errors.Wrap(err, "build request")
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.ERPAPIToken)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := &APIError{Status: resp.StatusCode, Body: string(respBody)}
			if isRetryableStatus(resp.StatusCode) {
				lastErr = apiErr
				continue
			}
			return nil, apiErr
		}

		var apiResp apiResponse
		if err := json.Unmarshal(respBody, &apiResp); err != nil {
			return nil, errors.Wrapf(err, "decode %s envelope", endpoint)
		}
		if !apiResp.Success {
			return nil, errors.Errorf("erp api unsuccessful: %s %s", apiResp.Message, string(apiResp.Errors))
		}
		if string(apiResp.Data) == "null" {
			return nil, nil
		}
		return apiResp.Data, nil
	}

	if lastErr == nil {
		lastErr = errors.New("erp request failed")
	}
	return nil, errors.Wrapf(lastErr, "%s %s after %d attempts", method, endpoint, maxAttempts)
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
