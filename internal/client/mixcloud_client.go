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
	"strings"
	"time"

	"github.com/mixramp/publisher/internal/config"
	"github.com/mixramp/publisher/internal/model"
)

// MixcloudClient talks to the Mixcloud upload API. The whole publication is
// a single multipart call carrying the audio, artwork and the tracklist as
// numbered section fields.
type MixcloudClient struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
}

// NewMixcloudClient creates a new Mixcloud API client
func NewMixcloudClient(cfg *config.MixcloudConfig) *MixcloudClient {
	return &MixcloudClient{
		httpClient:  &http.Client{Timeout: 10 * time.Minute},
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
	}
}

func (c *MixcloudClient) Name() string { return string(model.DestinationMixcloud) }

// IsConfigured returns true if the client has valid configuration
func (c *MixcloudClient) IsConfigured() bool {
	return c.accessToken != ""
}

type mixcloudUploadResponse struct {
	Result struct {
		Success bool   `json:"success"`
		Key     string `json:"key"`
	} `json:"result"`
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// UploadFile publishes the audio with embedded metadata and tracklist.
func (c *MixcloudClient) UploadFile(ctx context.Context, path string, meta *model.DestinationMetadata) (*UploadResponse, error) {
	if !c.IsConfigured() {
		return c.uploadMock(meta)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("mp3", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy audio file: %w", err)
	}

	_ = writer.WriteField("name", meta.Title)
	if meta.Description != "" {
		_ = writer.WriteField("description", meta.Description)
	}
	for i, genre := range meta.Genres {
		_ = writer.WriteField(fmt.Sprintf("tags-%d-tag", i), genre)
	}
	for i, song := range meta.Tracklist {
		_ = writer.WriteField(fmt.Sprintf("sections-%d-artist", i), song.Artist)
		_ = writer.WriteField(fmt.Sprintf("sections-%d-song", i), song.Title)
	}

	if meta.ArtworkPath != "" {
		artwork, err := os.Open(meta.ArtworkPath)
		if err == nil {
			artPart, err := writer.CreateFormFile("picture", filepath.Base(meta.ArtworkPath))
			if err == nil {
				_, _ = io.Copy(artPart, artwork)
			}
			artwork.Close()
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/upload/?access_token=%s", c.baseURL, c.accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mixcloud request failed: %w", err)
	}
	defer resp.Body.Close()

	var uploadResp mixcloudUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return nil, fmt.Errorf("failed to decode mixcloud response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || !uploadResp.Result.Success {
		msg := uploadResp.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("mixcloud API error (status %d)", resp.StatusCode)
		}
		return nil, fmt.Errorf("%s", msg)
	}

	return &UploadResponse{
		Success: true,
		ID:      uploadResp.Result.Key,
		URL:     "https://www.mixcloud.com" + uploadResp.Result.Key,
	}, nil
}

// Mock implementation for development/testing
func (c *MixcloudClient) uploadMock(meta *model.DestinationMetadata) (*UploadResponse, error) {
	slug := strings.ToLower(strings.ReplaceAll(meta.Title, " ", "-"))
	key := "/mixramp/" + slug + "/"
	return &UploadResponse{
		Success: true,
		ID:      key,
		URL:     "https://www.mixcloud.com" + key,
	}, nil
}
