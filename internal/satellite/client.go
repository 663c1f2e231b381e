package satellite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client forwards ingestion requests to a remote /ingest-satellite-data endpoint.
type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (c *Client) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("error encoding ingest request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error calling remote ingest: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil && eb.Error != "" {
			return nil, fmt.Errorf("remote ingest failed (%d): %s", resp.StatusCode, eb.Error)
		}
		return nil, fmt.Errorf("remote ingest returned status %d", resp.StatusCode)
	}

	var result IngestResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("error decoding ingest result: %w", err)
	}
	return &result, nil
}
