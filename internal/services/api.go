// API service for talking to a running tunedl server
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/desertthunder/tunedl/internal/ledger"
	"github.com/desertthunder/tunedl/internal/shared"
)

const DefaultAPIURL = "http://localhost:5000"

// APIService provides methods for submitting jobs to, and polling, a tunedl HTTP server.
type APIService struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIService creates a new API client. An empty baseURL targets a local server on the default port.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    baseURL,
		httpClient: client,
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// errorBody is the failure envelope every endpoint uses.
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// StartResponse is returned by POST /api/download/start.
type StartResponse struct {
	Success    bool   `json:"success"`
	DownloadID string `json:"download_id"`
	Message    string `json:"message"`
}

// ProgressResponse is returned by GET /api/download/progress/{id}.
type ProgressResponse struct {
	Success    bool           `json:"success"`
	DownloadID string         `json:"download_id"`
	Progress   []ledger.Event `json:"progress"`
	Status     string         `json:"status"`
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return a.do(req)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return a.do(req)
}

func (a *APIService) do(req *http.Request) (*APIResponse, error) {
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// decode unmarshals a successful response into out, or converts the error envelope.
func (r *APIResponse) decode(out any) error {
	if r.StatusCode < 200 || r.StatusCode >= 300 {
		var e errorBody
		if err := json.Unmarshal(r.Body, &e); err == nil && e.Error != "" {
			return fmt.Errorf("%w: %s (status %d)", shared.ErrAPIRequest, e.Error, r.StatusCode)
		}
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, r.StatusCode)
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Health checks that the server is up.
func (a *APIService) Health(ctx context.Context) error {
	resp, err := a.Get(ctx, "/api/health")
	if err != nil {
		return err
	}
	var body map[string]string
	return resp.decode(&body)
}

// Start submits reference for acquisition and returns the job id.
func (a *APIService) Start(ctx context.Context, reference string) (string, error) {
	data, err := json.Marshal(map[string]string{"url": reference})
	if err != nil {
		return "", err
	}

	resp, err := a.Post(ctx, "/api/download/start", data)
	if err != nil {
		return "", err
	}

	var out StartResponse
	if err := resp.decode(&out); err != nil {
		return "", err
	}
	return out.DownloadID, nil
}

// Progress fetches the current event log and status of a job.
func (a *APIService) Progress(ctx context.Context, jobID string) (*ProgressResponse, error) {
	resp, err := a.Get(ctx, "/api/download/progress/"+url.PathEscape(jobID))
	if err != nil {
		return nil, err
	}

	var out ProgressResponse
	if err := resp.decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
