package httpapi

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Jayliang7/VideoSplice/internal/domain/entity"
	"github.com/Jayliang7/VideoSplice/internal/domain/port"
	"github.com/Jayliang7/VideoSplice/internal/worker"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	store          port.JobStore
	queue          *worker.Queue
	uploadDir      string
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewHandler(store port.JobStore, queue *worker.Queue, uploadDir string, maxUploadBytes int64, logger *zap.Logger) *Handler {
	return &Handler{
		store:          store,
		queue:          queue,
		uploadDir:      uploadDir,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

type uploadResponse struct {
	JobID string `json:"job_id"`
}

type statusResponse struct {
	State    entity.JobState  `json:"state"`
	Progress float64          `json:"progress"`
	Error    *entity.JobError `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// Upload accepts a single multipart video. Oversized files are rejected
// before a Job exists; the pipeline never sees them.
func (h *Handler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "missing file field"})
	}

	if fileHeader.Size > h.maxUploadBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(errorResponse{
			Error: fmt.Sprintf("file exceeds %d byte limit", h.maxUploadBytes),
			Kind:  string(entity.ErrKindOversizedUpload),
		})
	}

	job := entity.NewJob(fileHeader.Filename, fileHeader.Size)
	if err := h.store.Create(job); err != nil {
		h.logger.Error("failed to create job", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "failed to create job"})
	}

	// The upload stream lands on disk during Uploading; the worker takes
	// over from Extracting.
	destPath := filepath.Join(h.uploadDir, job.ID.String()+filepath.Ext(fileHeader.Filename))
	if err := h.store.Update(job.ID, func(j *entity.Job) error {
		if err := j.Transition(entity.JobStateUploading); err != nil {
			return err
		}
		j.SourcePath = destPath
		return nil
	}); err != nil {
		h.store.Delete(job.ID)
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "failed to start upload"})
	}

	if err := c.SaveFile(fileHeader, destPath); err != nil {
		h.logger.Error("failed to persist upload", zap.String("job_id", job.ID.String()), zap.Error(err))
		h.store.Delete(job.ID)
		os.Remove(destPath)
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "failed to store upload"})
	}

	if err := h.queue.Enqueue(job.ID); err != nil {
		// The janitor only sweeps tracked jobs, so an upload rejected here
		// must be removed now or it is orphaned forever.
		h.store.Delete(job.ID)
		os.Remove(destPath)
		h.logger.Warn("job queue full, rejecting upload", zap.String("job_id", job.ID.String()))
		return c.Status(fiber.StatusServiceUnavailable).JSON(errorResponse{Error: "server busy, try again later"})
	}

	h.logger.Info("upload accepted",
		zap.String("job_id", job.ID.String()),
		zap.String("filename", fileHeader.Filename),
		zap.Int64("size_bytes", fileHeader.Size),
	)
	return c.Status(fiber.StatusAccepted).JSON(uploadResponse{JobID: job.ID.String()})
}

// Status is side-effect free and safe at any polling cadence.
func (h *Handler) Status(c *fiber.Ctx) error {
	snap, ok := h.lookup(c)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "job not found"})
	}

	return c.JSON(statusResponse{
		State:    snap.State,
		Progress: snap.Progress,
		Error:    snap.Err,
	})
}

// Download serves the archive only once the job is Done. A Done snapshot
// always carries the archive path; the two are published atomically.
func (h *Handler) Download(c *fiber.Ctx) error {
	snap, ok := h.lookup(c)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "job not found"})
	}

	if snap.State != entity.JobStateDone {
		return c.Status(fiber.StatusConflict).JSON(errorResponse{
			Error: fmt.Sprintf("job is %s, not ready for download", snap.State),
		})
	}

	return c.Download(snap.ArchivePath, snap.ID.String()+".zip")
}

func (h *Handler) lookup(c *fiber.Ctx) (entity.Snapshot, bool) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return entity.Snapshot{}, false
	}
	snap, err := h.store.Snapshot(id)
	if err != nil {
		if !errors.Is(err, entity.ErrJobNotFound) {
			h.logger.Error("snapshot lookup failed", zap.Error(err))
		}
		return entity.Snapshot{}, false
	}
	return snap, true
}
