package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/mixramp/publisher/internal/archive"
	"github.com/mixramp/publisher/internal/auth"
	"github.com/mixramp/publisher/internal/handler"
	"github.com/mixramp/publisher/internal/logger"
	"github.com/mixramp/publisher/internal/middleware"
	"github.com/mixramp/publisher/internal/service"
	"github.com/mixramp/publisher/internal/status"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app   *fiber.App
	store *status.Store
}

// setupApp creates a Fiber app wired like main.go but rooted at temp
// directories, with legacy HMAC auth and no external destinations.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	workDir := t.TempDir()
	archiveDir := t.TempDir()
	slogger := logger.New("test", "error")

	// Redis-backed pieces degrade gracefully when Redis is unreachable.
	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // use DB 15 for tests to avoid collision
	})
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: "localhost:6379",
		DB:   15,
	})
	t.Cleanup(func() { asynqClient.Close() })

	validate := validator.New()

	store := status.NewStore(workDir)
	archiver := archive.NewManager(archiveDir, nil, slogger)

	intakeService := service.NewIntakeService(workDir, store)
	publishService := service.NewPublishService(store, intakeService, archiver, asynqClient)

	jobHandler := handler.NewJobHandler(intakeService, publishService, validate)
	publishHandler := handler.NewPublishHandler(publishService)
	authHandler := handler.NewAuthHandler(nil, testJWTSecret)

	authMiddleware := middleware.NewLegacyAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New(fiber.Config{
		BodyLimit: 64 * 1024 * 1024,
	})

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": 1234567890})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"azuracast":  false,
				"mixcloud":   false,
				"soundcloud": false,
				"parser":     false,
				"mirror":     false,
				"auth":       true,
			},
		})
	})
	app.Get("/auth/verify", authHandler.Verify)

	api := app.Group("/api", authMiddleware.Authenticate())

	// Use very high rate limits so tests don't get blocked
	jobs := api.Group("/jobs")
	jobs.Post("/", rateLimiter.IntakeLimit(10000), jobHandler.Create)
	jobs.Post("/:jobId/confirm-songs", jobHandler.ConfirmSongs)

	publish := api.Group("/publish")
	publish.Post("/start/:jobId", rateLimiter.StartLimit(10000), publishHandler.Start)
	publish.Get("/status/:jobId", rateLimiter.StatusLimit(10000), publishHandler.Status)
	publish.Get("/archive/:jobId", publishHandler.ArchiveStatus)

	return &testApp{app: app, store: store}
}

// generateToken creates a legacy HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	claims := auth.LegacyClaims{
		UserID: "test-user-123",
		Email:  "test@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "mixramp-publisher",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// submissionForm is the multipart form for POST /api/jobs.
type submissionForm struct {
	metadata  string
	audio     []byte
	tracklist []byte
	artwork   []byte
}

// doSubmission posts a multipart job submission.
func doSubmission(t *testing.T, app *fiber.App, form submissionForm) (*http.Response, error) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if form.metadata != "" {
		if err := w.WriteField("metadata", form.metadata); err != nil {
			t.Fatalf("failed to write metadata field: %v", err)
		}
	}
	writeFile := func(field, name string, content []byte) {
		if content == nil {
			return
		}
		fw, err := w.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("failed to create %s part: %v", field, err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatalf("failed to write %s part: %v", field, err)
		}
	}
	writeFile("audio", "show.mp3", form.audio)
	writeFile("tracklist", "tracklist.json", form.tracklist)
	writeFile("artwork", "cover.png", form.artwork)

	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, "/api/jobs", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+generateToken(t))

	return app.Test(req, -1)
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
