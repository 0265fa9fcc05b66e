package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/mixramp/publisher/internal/service"
	"github.com/mixramp/publisher/pkg/response"
)

type PublishHandler struct {
	publish *service.PublishService
}

func NewPublishHandler(publish *service.PublishService) *PublishHandler {
	return &PublishHandler{publish: publish}
}

// Start handles POST /api/publish/start/:jobId
// @Summary      Start publishing
// @Description  Enqueue the publish run for a received job
// @Tags         Publish
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      202 {object} model.StartPublishResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/publish/start/{jobId} [post]
func (h *PublishHandler) Start(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.publish.Start(c.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrJobNotFound):
			return response.NotFound(c, "Job not found")
		case errors.Is(err, service.ErrAlreadyProcessing):
			return response.Error(c, fiber.StatusConflict, response.CodeJobFailed, "Job is already being processed", nil)
		case errors.Is(err, service.ErrAlreadyCompleted):
			return response.Error(c, fiber.StatusConflict, response.CodeJobFailed, "Job has already finished", nil)
		case errors.Is(err, service.ErrSongsNotConfirmed):
			return response.ValidationError(c, "Tracklist must be confirmed before publishing", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/publish/status/:jobId
// @Summary      Job status
// @Description  Return the job's current status record, live or archived
// @Tags         Publish
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.StatusRecord
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/publish/status/{jobId} [get]
func (h *PublishHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	record, err := h.publish.GetStatus(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, record)
}

// ArchiveStatus handles GET /api/publish/archive/:jobId
// @Summary      Archive status
// @Description  Report whether the job has been archived, with the archive record when present
// @Tags         Publish
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.ArchiveStatusResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/publish/archive/{jobId} [get]
func (h *PublishHandler) ArchiveStatus(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.publish.GetArchiveStatus(c.Context(), jobID)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}
