package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is a small HTTP client for the two service endpoints. It is used by
// the data subcommands and the perf tool.
type Client struct {
	baseURL    *url.URL
	client     *http.Client
	retryCount int
}

// NewClient creates a client for the service at baseURL (e.g.
// "http://localhost:8080"). Failed requests are retried up to retryCount
// times before giving up.
func NewClient(baseURL string, timeout time.Duration, retryCount int) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if retryCount < 1 {
		retryCount = 1
	}

	return &Client{
		baseURL: parsed,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     timeout,
			},
		},
		retryCount: retryCount,
	}, nil
}

// SubmitDataA posts a raw Data A document to POST /data-a.
func (c *Client) SubmitDataA(body []byte) error {
	resp, err := c.send(http.MethodPost, "/data-a", body)
	if err != nil {
		return err
	}
	var status StatusResponse
	if err := json.Unmarshal(resp, &status); err != nil {
		return fmt.Errorf("unexpected response: %s", resp)
	}
	if status.Status != "ok" {
		return fmt.Errorf("unexpected status: %s", status.Status)
	}
	return nil
}

// GetDataC retrieves the current merged document from GET /data-c.
// The boolean is false while no merged document exists (HTTP 404).
func (c *Client) GetDataC() ([]byte, bool, error) {
	resp, err := c.send(http.MethodGet, "/data-c", nil)
	if err != nil {
		var httpErr *httpError
		if errors.As(err, &httpErr) && httpErr.status == http.StatusNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return resp, true, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

type httpError struct {
	status int
	body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("http error %d: %s", e.status, e.body)
}

// send performs one request with retries on transport level failures.
func (c *Client) send(method, path string, body []byte) ([]byte, error) {
	requestURL := c.baseURL.JoinPath(path).String()

	var lastErr error
	for i := 0; i < c.retryCount; i++ {
		req, err := http.NewRequest(method, requestURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		// HTTP level errors are not retried - the server answered.
		if resp.StatusCode != http.StatusOK {
			return nil, &httpError{status: resp.StatusCode, body: string(respBody)}
		}
		return respBody, nil
	}

	return nil, lastErr
}
