package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/zawlinn/boostline-backend/pkg/config"
	pkgerrors "github.com/zawlinn/boostline-backend/pkg/errors"
	"github.com/zawlinn/boostline-backend/pkg/logger"
)

var errLoggerRequired = errors.New("provider logger is required")

// Client wraps the upstream fulfillment panel API. Every operation is a
// keyed form POST against a single endpoint; the action parameter selects
// the operation.
type Client struct {
	apiURL     string
	apiKey     string
	httpSubmit *http.Client
	httpStatus *http.Client
	httpOther  *http.Client
	logger     *logger.Logger
}

// NewClient initializes the provider wrapper and validates the credentials.
func NewClient(cfg config.ProviderConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	apiURL := strings.TrimSpace(cfg.URL)
	if apiURL == "" {
		return nil, errors.New("provider api url is required")
	}
	apiKey := strings.TrimSpace(cfg.Key)
	if apiKey == "" {
		return nil, errors.New("provider api key is required")
	}
	return &Client{
		apiURL:     apiURL,
		apiKey:     apiKey,
		httpSubmit: &http.Client{Timeout: cfg.SubmitTimeout},
		httpStatus: &http.Client{Timeout: cfg.StatusTimeout},
		httpOther:  &http.Client{Timeout: cfg.SupportTimeout},
		logger:     logg,
	}, nil
}

// SubmitParams describe a new provider order.
type SubmitParams struct {
	ServiceID string
	Link      string
	Quantity  int64
	Comments  string
}

// StatusInfo is one entry of a batch status response.
type StatusInfo struct {
	Status  string
	Remains *int64
}

// ServiceInfo describes one service from the provider catalog listing.
type ServiceInfo struct {
	ServiceID string
	Name      string
	Category  string
	Rate      string
	Min       int64
	Max       int64
}

// Submit places an order upstream and returns the provider order id.
// A rejection reported by the provider comes back as CodeProviderRejected;
// transport problems come back as CodeDependency.
func (c *Client) Submit(ctx context.Context, params SubmitParams) (string, error) {
	form := url.Values{}
	form.Set("action", "add")
	form.Set("service", params.ServiceID)
	form.Set("link", params.Link)
	form.Set("quantity", fmt.Sprintf("%d", params.Quantity))
	if params.Comments != "" {
		form.Set("comments", params.Comments)
	}

	c.log(ctx, "request", "add", map[string]any{
		"service":  params.ServiceID,
		"quantity": params.Quantity,
	})

	var resp struct {
		Order *json.Number `json:"order"`
		Error string       `json:"error"`
	}
	if err := c.post(ctx, c.httpSubmit, form, &resp); err != nil {
		c.log(ctx, "error", "add", map[string]any{"error": err.Error()})
		return "", err
	}
	if resp.Error != "" {
		c.log(ctx, "rejected", "add", map[string]any{"error": resp.Error})
		return "", pkgerrors.New(pkgerrors.CodeProviderRejected, resp.Error)
	}
	if resp.Order == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "provider returned neither order id nor error")
	}

	providerOrderID := resp.Order.String()
	c.log(ctx, "response", "add", map[string]any{"provider_order_id": providerOrderID})
	return providerOrderID, nil
}

// StatusBatch queries status for up to one batch of provider order ids.
// The provider may answer for a subset; missing ids simply have no entry in
// the returned map. Entries that are not well-formed status objects are
// skipped.
func (c *Client) StatusBatch(ctx context.Context, providerOrderIDs []string) (map[string]StatusInfo, error) {
	if len(providerOrderIDs) == 0 {
		return map[string]StatusInfo{}, nil
	}

	form := url.Values{}
	form.Set("action", "status")
	form.Set("orders", strings.Join(providerOrderIDs, ","))

	c.log(ctx, "request", "status", map[string]any{"count": len(providerOrderIDs)})

	var raw map[string]json.RawMessage
	if err := c.post(ctx, c.httpStatus, form, &raw); err != nil {
		c.log(ctx, "error", "status", map[string]any{"error": err.Error()})
		return nil, err
	}

	result := make(map[string]StatusInfo, len(raw))
	for id, entry := range raw {
		var info statusEntry
		if err := json.Unmarshal(entry, &info); err != nil || info.Status == "" {
			continue
		}
		result[id] = StatusInfo{Status: info.Status, Remains: info.remainsValue()}
	}

	c.log(ctx, "response", "status", map[string]any{"returned": len(result)})
	return result, nil
}

// RequestRefill asks the provider to refill a delivered order and returns
// the raw acknowledgement text.
func (c *Client) RequestRefill(ctx context.Context, providerOrderID string) (string, error) {
	return c.supportAction(ctx, "refill", providerOrderID)
}

// RequestCancel asks the provider to cancel an in-flight order and returns
// the raw acknowledgement text.
func (c *Client) RequestCancel(ctx context.Context, providerOrderID string) (string, error) {
	return c.supportAction(ctx, "cancel", providerOrderID)
}

// Services fetches the provider's service catalog.
func (c *Client) Services(ctx context.Context) ([]ServiceInfo, error) {
	form := url.Values{}
	form.Set("action", "services")

	c.log(ctx, "request", "services", nil)

	var raw []serviceEntry
	if err := c.post(ctx, c.httpStatus, form, &raw); err != nil {
		c.log(ctx, "error", "services", map[string]any{"error": err.Error()})
		return nil, err
	}

	services := make([]ServiceInfo, 0, len(raw))
	for _, entry := range raw {
		if entry.Service.String() == "" {
			continue
		}
		services = append(services, ServiceInfo{
			ServiceID: entry.Service.String(),
			Name:      entry.Name,
			Category:  entry.Category,
			Rate:      entry.Rate.String(),
			Min:       entry.Min.toInt64(),
			Max:       entry.Max.toInt64(),
		})
	}

	c.log(ctx, "response", "services", map[string]any{"count": len(services)})
	return services, nil
}

func (c *Client) supportAction(ctx context.Context, action, providerOrderID string) (string, error) {
	form := url.Values{}
	form.Set("action", action)
	form.Set("order", providerOrderID)

	c.log(ctx, "request", action, map[string]any{"provider_order_id": providerOrderID})

	body, err := c.postRaw(ctx, c.httpOther, form)
	if err != nil {
		c.log(ctx, "error", action, map[string]any{"error": err.Error()})
		return "", err
	}

	ack := strings.TrimSpace(string(body))
	c.log(ctx, "response", action, map[string]any{"ack": ack})
	return ack, nil
}

func (c *Client) post(ctx context.Context, httpClient *http.Client, form url.Values, out any) error {
	body, err := c.postRaw(ctx, httpClient, form)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode provider response")
	}
	return nil
}

func (c *Client) postRaw(ctx context.Context, httpClient *http.Client, form url.Values) ([]byte, error) {
	form.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build provider request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "provider request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read provider response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("provider returned status %d", resp.StatusCode))
	}
	return body, nil
}

func (c *Client) log(ctx context.Context, phase, action string, fields map[string]any) {
	logCtx := c.logger.WithFields(ctx, map[string]any{
		"component": "provider",
		"phase":     phase,
		"action":    action,
	})
	if len(fields) > 0 {
		logCtx = c.logger.WithFields(logCtx, fields)
	}
	c.logger.Debug(logCtx, "provider call")
}
