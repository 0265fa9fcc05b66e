package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mixramp/publisher/internal/config"
	"github.com/mixramp/publisher/internal/model"
)

// ParserClient implements TracklistParser against the external multi-format
// tracklist parser service. When the service is not configured it reads the
// file directly as the normalized JSON format, which is what intake writes.
type ParserClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewParserClient creates a new tracklist parser client
func NewParserClient(cfg *config.ParserConfig) *ParserClient {
	return &ParserClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.ServiceURL,
	}
}

// IsConfigured returns true if the client has valid configuration
func (c *ParserClient) IsConfigured() bool {
	return c.baseURL != ""
}

type parseRequest struct {
	Content string `json:"content"`
}

// Parse normalizes the tracklist file at path into songs.
func (c *ParserClient) Parse(ctx context.Context, path string) (*model.Tracklist, error) {
	if !c.IsConfigured() {
		return c.parseLocal(path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tracklist file: %w", err)
	}

	data, err := json.Marshal(parseRequest{Content: string(content)})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/parse", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("parser request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("parser service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var tracklist model.Tracklist
	if err := json.NewDecoder(resp.Body).Decode(&tracklist); err != nil {
		return nil, fmt.Errorf("failed to decode parser response: %w", err)
	}
	return &tracklist, nil
}

// parseLocal reads the file as the normalized {songs: [...]} JSON document.
func (c *ParserClient) parseLocal(path string) (*model.Tracklist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tracklist file: %w", err)
	}

	var tracklist model.Tracklist
	if err := json.Unmarshal(data, &tracklist); err != nil {
		return nil, fmt.Errorf("failed to parse tracklist: %w", err)
	}
	return &tracklist, nil
}
