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

	"github.com/google/uuid"
	"github.com/mixramp/publisher/internal/config"
	"github.com/mixramp/publisher/internal/model"
)

// SoundCloudClient talks to the SoundCloud tracks API: upload first, then a
// separate metadata update on the created track.
type SoundCloudClient struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
}

// NewSoundCloudClient creates a new SoundCloud API client
func NewSoundCloudClient(cfg *config.SoundCloudConfig) *SoundCloudClient {
	return &SoundCloudClient{
		httpClient:  &http.Client{Timeout: 10 * time.Minute},
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
	}
}

func (c *SoundCloudClient) Name() string { return string(model.DestinationSoundCloud) }

// IsConfigured returns true if the client has valid configuration
func (c *SoundCloudClient) IsConfigured() bool {
	return c.accessToken != ""
}

type soundcloudTrackResponse struct {
	ID           json.Number `json:"id"`
	PermalinkURL string      `json:"permalink_url"`
	Errors       []struct {
		ErrorMessage string `json:"error_message"`
	} `json:"errors"`
}

// UploadFile creates a new track from the audio asset and initial metadata.
func (c *SoundCloudClient) UploadFile(ctx context.Context, path string, meta *model.DestinationMetadata) (*UploadResponse, error) {
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

	part, err := writer.CreateFormFile("track[asset_data]", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy audio file: %w", err)
	}

	_ = writer.WriteField("track[title]", meta.Title)
	_ = writer.WriteField("track[sharing]", string(sharingOrDefault(meta.Sharing)))
	if meta.Description != "" {
		_ = writer.WriteField("track[description]", meta.Description)
	}
	if len(meta.Genres) > 0 {
		_ = writer.WriteField("track[genre]", meta.Genres[0])
	}

	if meta.ArtworkPath != "" {
		artwork, err := os.Open(meta.ArtworkPath)
		if err != nil {
			return nil, fmt.Errorf("artwork unreadable: %w", err)
		}
		artPart, err := writer.CreateFormFile("track[artwork_data]", filepath.Base(meta.ArtworkPath))
		if err == nil {
			_, _ = io.Copy(artPart, artwork)
		}
		artwork.Close()
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/tracks", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "OAuth "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("soundcloud request failed: %w", err)
	}
	defer resp.Body.Close()

	var trackResp soundcloudTrackResponse
	if err := json.NewDecoder(resp.Body).Decode(&trackResp); err != nil {
		return nil, fmt.Errorf("failed to decode soundcloud response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("soundcloud API error (status %d)", resp.StatusCode)
		if len(trackResp.Errors) > 0 {
			msg = trackResp.Errors[0].ErrorMessage
		}
		return nil, fmt.Errorf("%s", msg)
	}

	return &UploadResponse{
		Success: true,
		ID:      trackResp.ID.String(),
		URL:     trackResp.PermalinkURL,
	}, nil
}

// UpdateTrackMetadata patches an existing track's metadata.
func (c *SoundCloudClient) UpdateTrackMetadata(ctx context.Context, id string, meta *model.DestinationMetadata) error {
	if !c.IsConfigured() {
		return nil
	}

	payload := map[string]interface{}{
		"track": map[string]interface{}{
			"title":       meta.Title,
			"description": meta.Description,
			"sharing":     string(sharingOrDefault(meta.Sharing)),
			"tag_list":    strings.Join(meta.Genres, " "),
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/tracks/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "OAuth "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("soundcloud request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("soundcloud API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Mock implementation for development/testing
func (c *SoundCloudClient) uploadMock(meta *model.DestinationMetadata) (*UploadResponse, error) {
	id := uuid.New().String()[:8]
	slug := strings.ToLower(strings.ReplaceAll(meta.Title, " ", "-"))
	return &UploadResponse{
		Success: true,
		ID:      "sc-" + id,
		URL:     "https://soundcloud.com/mixramp/" + slug,
	}, nil
}

func sharingOrDefault(s model.Sharing) model.Sharing {
	if s == "" {
		return model.SharingPublic
	}
	return s
}
