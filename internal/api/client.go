package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	httpTimeoutEnvKey  = "DEADDROP_HTTP_TIMEOUT"
	adminTokenEnvKey   = "DEADDROP_ADMIN_TOKEN"
)

// Client is a simple HTTP client for the deaddrop API.
type Client struct {
	baseURL    string
	http       *http.Client
	adminToken string
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: httpTimeoutFromEnv()},
		adminToken: strings.TrimSpace(os.Getenv(adminTokenEnvKey)),
	}
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// GetInfo fetches server and store information.
func (c *Client) GetInfo(ctx context.Context) (InfoResponse, error) {
	var resp InfoResponse
	err := c.do(ctx, http.MethodGet, "/v1/info", nil, &resp)
	return resp, err
}

// CreateDrop uploads a payload (and optional carrier PNG) as multipart
// form data and returns the created drop.
func (c *Client) CreateDrop(ctx context.Context, req CreateDropRequest, filename string, payload []byte, carrier []byte) (CreateDropResponse, error) {
	var resp CreateDropResponse

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return resp, err
	}
	if _, err := part.Write(payload); err != nil {
		return resp, err
	}
	if len(carrier) > 0 {
		carrierPart, err := form.CreateFormFile("carrier", "carrier.png")
		if err != nil {
			return resp, err
		}
		if _, err := carrierPart.Write(carrier); err != nil {
			return resp, err
		}
	}

	fields := map[string]string{
		"password":           req.Password,
		"password_hint":      req.PasswordHint,
		"ttl_seconds":        strconv.FormatInt(req.TTLSeconds, 10),
		"max_retrievals":     strconv.Itoa(req.MaxRetrievals),
		"burn_after_reading": strconv.FormatBool(req.BurnAfterReading),
		"bits_per_channel":   strconv.Itoa(req.BitsPerChannel),
		"tags":               strings.Join(req.Tags, ","),
	}
	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := form.WriteField(key, value); err != nil {
			return resp, err
		}
	}
	if err := form.Close(); err != nil {
		return resp, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/drops", &body)
	if err != nil {
		return resp, err
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

// GetDrop fetches password-free metadata by codename.
func (c *Client) GetDrop(ctx context.Context, codename string) (DropMetadataResponse, error) {
	var resp DropMetadataResponse
	err := c.do(ctx, http.MethodGet, "/v1/drops/"+url.PathEscape(codename), nil, &resp)
	return resp, err
}

// Retrieve exchanges codename and password for the decrypted payload.
func (c *Client) Retrieve(ctx context.Context, codename, password string) ([]byte, RetrieveInfo, error) {
	var info RetrieveInfo

	payload, err := json.Marshal(RetrieveRequest{Password: password})
	if err != nil {
		return nil, info, err
	}
	endpoint := c.baseURL + "/v1/drops/" + url.PathEscape(codename) + "/retrieve"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, info, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, info, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, info, decodeError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, info, err
	}

	info.Codename = resp.Header.Get("X-Drop-Codename")
	info.Filename = filenameFromDisposition(resp.Header.Get("Content-Disposition"))
	info.MimeType = resp.Header.Get("Content-Type")
	info.Burned = resp.Header.Get("X-Drop-Burned") == "true"
	info.RetrievalCount, _ = strconv.Atoi(resp.Header.Get("X-Drop-Retrieval-Count"))
	info.RetrievalsRemaining, _ = strconv.Atoi(resp.Header.Get("X-Drop-Retrievals-Remaining"))

	return data, info, nil
}

// Events fetches the audit trail for a drop (admin token required).
func (c *Client) Events(ctx context.Context, codename string) (EventsResponse, error) {
	var resp EventsResponse
	err := c.doAdmin(ctx, http.MethodGet, "/v1/drops/"+url.PathEscape(codename)+"/events", nil, &resp)
	return resp, err
}

// DeleteDrop removes a drop immediately (admin token required).
func (c *Client) DeleteDrop(ctx context.Context, codename string) error {
	return c.doAdmin(ctx, http.MethodDelete, "/v1/drops/"+url.PathEscape(codename), nil, nil)
}

// Sweep forces a retention sweep (admin token required).
func (c *Client) Sweep(ctx context.Context) (SweepResponse, error) {
	var resp SweepResponse
	err := c.doAdmin(ctx, http.MethodPost, "/v1/admin/sweep", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	return c.request(ctx, method, path, body, out, false)
}

func (c *Client) doAdmin(ctx context.Context, method, path string, body any, out any) error {
	return c.request(ctx, method, path, body, out, true)
}

func (c *Client) request(ctx context.Context, method, path string, body any, out any, admin bool) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin && c.adminToken != "" {
		req.Header.Set("X-Admin-Token", c.adminToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		return &APIError{
			Status:    resp.StatusCode,
			Code:      errResp.Code,
			ErrorCode: errResp.ErrorCode,
			Message:   errResp.Error,
		}
	}
	return &APIError{Status: resp.StatusCode, Message: resp.Status}
}

func filenameFromDisposition(disposition string) string {
	const marker = `filename="`
	idx := strings.Index(disposition, marker)
	if idx < 0 {
		return ""
	}
	rest := disposition[idx+len(marker):]
	if end := strings.IndexByte(rest, '"'); end >= 0 {
		return rest[:end]
	}
	return ""
}

func httpTimeoutFromEnv() time.Duration {
	raw := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if raw == "" {
		return defaultHTTPTimeout
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return defaultHTTPTimeout
	}
	return time.Duration(seconds) * time.Second
}

// BaseURL reports the configured endpoint, for diagnostics.
func (c *Client) BaseURL() string {
	return c.baseURL
}
