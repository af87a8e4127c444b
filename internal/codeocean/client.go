// Package codeocean is the HTTP client for the Code Ocean REST API:
// capsule runs, computation status, result listing and file downloads.
package codeocean

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"capsulectl/pkg/api"
)

// Client handles API calls to the Code Ocean platform.
type Client struct {
	Domain     string
	Token      string
	HTTPClient *http.Client

	// downloadClient fetches result files from pre-signed URLs. Separate
	// client so large files are not cut off by the API timeout.
	downloadClient *http.Client
}

// NewClient creates a new client for the given platform domain and API token.
func NewClient(domain, token string) *Client {
	return &Client{
		Domain: domain,
		Token:  token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		downloadClient: &http.Client{
			Timeout: 30 * time.Minute,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// RunCapsule sends POST /api/v1/computations to start a new computation.
func (c *Client) RunCapsule(ctx context.Context, req api.RunCapsuleRequest) (*api.Computation, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var result api.Computation
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/computations", bytes.NewReader(bodyBytes), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetCapsule sends GET /api/v1/capsules/{id} to retrieve capsule details.
func (c *Client) GetCapsule(ctx context.Context, capsuleID string) (*api.Capsule, error) {
	var result api.Capsule
	path := fmt.Sprintf("/api/v1/capsules/%s", url.PathEscape(capsuleID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetComputation sends GET /api/v1/computations/{id} to retrieve the
// current state of a computation.
func (c *Client) GetComputation(ctx context.Context, computationID string) (*api.Computation, error) {
	var result api.Computation
	path := fmt.Sprintf("/api/v1/computations/%s", url.PathEscape(computationID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListResultFolder sends GET /api/v1/computations/{id}/results to list one
// level of a computation's result tree. An empty path lists the root.
func (c *Client) ListResultFolder(ctx context.Context, computationID, folderPath string) (*api.Folder, error) {
	var result api.Folder
	path := fmt.Sprintf("/api/v1/computations/%s/results", url.PathEscape(computationID))
	if folderPath != "" {
		path += "?path=" + url.QueryEscape(folderPath)
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetResultDownloadURL sends GET /api/v1/computations/{id}/results/download_url
// to obtain a pre-signed URL for a single result file.
func (c *Client) GetResultDownloadURL(ctx context.Context, computationID, filePath string) (string, error) {
	var result api.FileURL
	path := fmt.Sprintf("/api/v1/computations/%s/results/download_url?path=%s",
		url.PathEscape(computationID), url.QueryEscape(filePath))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return "", err
	}
	if result.URL == "" {
		return "", fmt.Errorf("empty download URL for %s", filePath)
	}
	return result.URL, nil
}

// DownloadFile fetches a result file from its pre-signed URL. The URL is
// already authenticated, so no token is attached. The caller must close
// the returned reader.
func (c *Client) DownloadFile(ctx context.Context, fileURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "download request rejected"}
	}
	return resp.Body, nil
}

// doJSON performs an authenticated API request and decodes the JSON
// response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, body io.Reader, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.Domain+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// The platform authenticates with the token as the basic-auth user.
	httpReq.SetBasicAuth(c.Token, "")
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &APIError{StatusCode: resp.StatusCode, Message: apiErrorMessage(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func apiErrorMessage(body []byte) string {
	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		return errResp.Message
	}
	return string(body)
}
