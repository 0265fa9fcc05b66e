package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mixramp/publisher/internal/config"
	"github.com/mixramp/publisher/internal/model"
)

// AzuraCastClient talks to a self-hosted AzuraCast station. It implements
// the full three-stage protocol: upload, set metadata, add to playlist.
type AzuraCastClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	stationID  string
	playlistID string
}

// NewAzuraCastClient creates a new AzuraCast API client
func NewAzuraCastClient(cfg *config.AzuraCastConfig) *AzuraCastClient {
	return &AzuraCastClient{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		stationID:  cfg.StationID,
		playlistID: cfg.PlaylistID,
	}
}

func (c *AzuraCastClient) Name() string { return string(model.DestinationAzuraCast) }

// IsConfigured returns true if the client has valid configuration
func (c *AzuraCastClient) IsConfigured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

type azuraFileResponse struct {
	ID   json.Number `json:"id"`
	Path string      `json:"path"`
}

// UploadFile uploads the audio asset to the station's media storage and
// returns the created media id.
func (c *AzuraCastClient) UploadFile(ctx context.Context, path string, meta *model.DestinationMetadata) (*UploadResponse, error) {
	if !c.IsConfigured() {
		return c.uploadMock(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy audio file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/station/%s/files/upload", c.baseURL, c.stationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-API-Key", c.apiKey)

	var fileResp azuraFileResponse
	if err := c.do(req, &fileResp); err != nil {
		return nil, err
	}

	return &UploadResponse{
		Success: true,
		ID:      fileResp.ID.String(),
		Path:    fileResp.Path,
	}, nil
}

// SetMetadata applies title, artist and playlist-facing fields to an
// uploaded media file.
func (c *AzuraCastClient) SetMetadata(ctx context.Context, id string, meta *model.DestinationMetadata) error {
	if !c.IsConfigured() {
		return nil
	}

	payload := map[string]interface{}{
		"title":  meta.Title,
		"artist": meta.Artist,
		"genre":  joinGenres(meta.Genres),
	}

	url := fmt.Sprintf("%s/api/station/%s/file/%s", c.baseURL, c.stationID, id)
	return c.putJSON(ctx, url, payload, nil)
}

// AddToPlaylist assigns an uploaded media file to the configured playlist.
func (c *AzuraCastClient) AddToPlaylist(ctx context.Context, id string) error {
	if !c.IsConfigured() {
		return nil
	}

	payload := map[string]interface{}{
		"playlists": []map[string]string{{"id": c.playlistID}},
	}

	url := fmt.Sprintf("%s/api/station/%s/file/%s", c.baseURL, c.stationID, id)
	return c.putJSON(ctx, url, payload, nil)
}

func (c *AzuraCastClient) putJSON(ctx context.Context, url string, payload, result interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	return c.do(req, result)
}

func (c *AzuraCastClient) do(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("azuracast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("azuracast API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode azuracast response: %w", err)
	}
	return nil
}

// Mock implementation for development/testing
func (c *AzuraCastClient) uploadMock(path string) (*UploadResponse, error) {
	id := uuid.New().String()[:8]
	return &UploadResponse{
		Success: true,
		ID:      "azc-" + id,
		Path:    "/media/" + filepath.Base(path),
	}, nil
}

func joinGenres(genres []string) string {
	out := ""
	for i, g := range genres {
		if i > 0 {
			out += ", "
		}
		out += g
	}
	return out
}
