package handler

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/mixramp/publisher/internal/middleware"
	"github.com/mixramp/publisher/internal/model"
	"github.com/mixramp/publisher/internal/service"
	"github.com/mixramp/publisher/pkg/response"
)

const maxUploadSize = 500 * 1024 * 1024 // 500MB

type JobHandler struct {
	intake    *service.IntakeService
	publish   *service.PublishService
	validator *validator.Validate
}

func NewJobHandler(intake *service.IntakeService, publish *service.PublishService, v *validator.Validate) *JobHandler {
	return &JobHandler{
		intake:    intake,
		publish:   publish,
		validator: v,
	}
}

// Create handles POST /api/jobs
// @Summary      Submit a show
// @Description  Create a publishing job from an audio file, optional artwork, tracklist and metadata
// @Tags         Jobs
// @Accept       multipart/form-data
// @Produce      json
// @Param        metadata  formData string true "Metadata JSON (title, owner, broadcastDate, destinations, ...)"
// @Param        audio     formData file   true "Audio file (max 500MB)"
// @Param        tracklist formData file   true "Tracklist file"
// @Param        artwork   formData file   false "Artwork image"
// @Success      201 {object} model.CreateJobResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/jobs [post]
func (h *JobHandler) Create(c *fiber.Ctx) error {
	metadataField := c.FormValue("metadata")
	if metadataField == "" {
		return response.ValidationError(c, "metadata is required", nil)
	}

	var req model.CreateJobRequest
	if err := json.Unmarshal([]byte(metadataField), &req); err != nil {
		return response.ValidationError(c, "Invalid metadata JSON", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	audioHeader, err := c.FormFile("audio")
	if err != nil {
		return response.ValidationError(c, "audio file is required", nil)
	}
	if audioHeader.Size > maxUploadSize {
		return response.ValidationError(c, "audio file exceeds maximum size", nil)
	}

	tracklistHeader, err := c.FormFile("tracklist")
	if err != nil {
		return response.ValidationError(c, "tracklist file is required", nil)
	}

	audioFile, err := audioHeader.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to read audio file")
	}
	defer audioFile.Close()

	tracklistFile, err := tracklistHeader.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to read tracklist file")
	}
	defer tracklistFile.Close()

	var artwork *service.Asset
	if artworkHeader, err := c.FormFile("artwork"); err == nil {
		artworkFile, err := artworkHeader.Open()
		if err != nil {
			return response.ServiceError(c, "Failed to read artwork file")
		}
		defer artworkFile.Close()
		artwork = &service.Asset{Name: artworkHeader.Filename, Reader: artworkFile}
	}

	result, err := h.intake.CreateJob(c.Context(), &req, middleware.GetUserID(c),
		service.Asset{Name: audioHeader.Filename, Reader: audioFile},
		service.Asset{Name: tracklistHeader.Filename, Reader: tracklistFile},
		artwork,
	)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, result)
}

// ConfirmSongs handles POST /api/jobs/:jobId/confirm-songs
// @Summary      Confirm parsed tracklist
// @Description  Record the human confirmation of the parsed tracklist for jobs that requested it
// @Tags         Jobs
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.ConfirmSongsResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/jobs/{jobId}/confirm-songs [post]
func (h *JobHandler) ConfirmSongs(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.publish.ConfirmSongs(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		if errors.Is(err, service.ErrInvalidTransition) {
			return response.ValidationError(c, "Job is not awaiting confirmation", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}
