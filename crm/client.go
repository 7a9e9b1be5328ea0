package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Zone families select which endpoint group and which started-flag apply.
const (
	FamilyGravare   = "gravare"
	FamilyLegatorie = "legatorie"
)

// Pipeline zones as the CRM names them.
const (
	ZoneGravare        = "gravare"
	ZoneLegatorie      = "legatorie"
	ZoneProductie      = "productie"
	ZoneDPD            = "dpd"
	ZoneFAN            = "fan"
	ZoneAprobareClient = "aprobareclient"
	ZoneProcesare      = "procesare"
	ZoneOnHold         = "onhold"
	ZonePending        = "pending"
)

// NetworkError wraps a transport-level failure: the request never completed.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("crm: request to %s failed: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a completed request the CRM rejected: non-2xx status or an
// ok:false payload. Message carries the server text when one was sent.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("crm: api error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("crm: api error (status %d)", e.Status)
}

// TokenSource supplies the bearer token for outgoing requests. An empty token
// sends an empty Authorization header; the CRM answers 401 and the caller
// sees an APIError.
type TokenSource interface {
	Token() string
}

// Client talks to the remote CRM. All zone feed, transition, billing and
// timesheet traffic goes through here.
type Client struct {
	mu      sync.RWMutex
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

// Reconfigure applies a new base URL and timeout live.
func (c *Client) Reconfigure(baseURL string, timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = baseURL
	c.http.Timeout = timeout
}

func (c *Client) url(path string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL + path
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, int, error) {
	url := c.url(path)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("crm: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("crm: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := ""
	if c.tokens != nil {
		token = c.tokens.Token()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Set("Authorization", "")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &NetworkError{URL: url, Err: err}
	}
	return data, resp.StatusCode, nil
}

// get fetches path and decodes the 2xx body into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	data, status, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return &APIError{Status: status, Message: serverMessage(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("crm: decode response: %w", err)
	}
	return nil
}

// post issues a POST and decodes the 2xx body into out. A non-2xx answer
// becomes an APIError carrying the message field of the error body. Billing
// endpoints that report failure with ok:false inside a 200 are unwrapped by
// their callers.
func (c *Client) post(ctx context.Context, path string, out any) error {
	data, status, err := c.do(ctx, http.MethodPost, path, nil)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return &APIError{Status: status, Message: serverMessage(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("crm: decode response: %w", err)
	}
	return nil
}

func serverMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		return body.Message
	}
	return ""
}

// Ping probes the CRM with a cheap snapshot fetch so startup can report
// connectivity the same way the status loop will see it.
func (c *Client) Ping(ctx context.Context) error {
	_, status, err := c.do(ctx, http.MethodGet, "/api/statusurigravare/"+ZoneGravare, nil)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return &APIError{Status: status}
	}
	return nil
}
