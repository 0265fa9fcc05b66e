package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mixramp/publisher/internal/config"
	"github.com/mixramp/publisher/internal/model"
)

func writeTracklistFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracklist.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParserClient_ParsesViaService(t *testing.T) {
	var received parseRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/parse", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(model.Tracklist{Songs: []model.Song{
			{Title: "One", Artist: "A"},
			{Title: "Two", Artist: "B"},
			{Title: "Three", Artist: "C"},
		}})
	}))
	defer server.Close()

	c := NewParserClient(&config.ParserConfig{ServiceURL: server.URL, Timeout: 5})
	path := writeTracklistFile(t, "1. A - One\n2. B - Two\n3. C - Three\n")

	tracklist, err := c.Parse(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, tracklist.Songs, 3)
	require.Contains(t, received.Content, "A - One")
}

func TestParserClient_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unrecognized format", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	c := NewParserClient(&config.ParserConfig{ServiceURL: server.URL, Timeout: 5})
	path := writeTracklistFile(t, "garbage")

	_, err := c.Parse(context.Background(), path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unrecognized format")
}

func TestParserClient_LocalFallback(t *testing.T) {
	c := NewParserClient(&config.ParserConfig{Timeout: 5})
	path := writeTracklistFile(t, `{"songs":[{"title":"One","artist":"A"}]}`)

	tracklist, err := c.Parse(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, tracklist.Songs, 1)
	require.Equal(t, "One", tracklist.Songs[0].Title)
}

func TestParserClient_MissingFile(t *testing.T) {
	c := NewParserClient(&config.ParserConfig{Timeout: 5})

	_, err := c.Parse(context.Background(), filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
}
