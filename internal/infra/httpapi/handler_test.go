package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Jayliang7/VideoSplice/internal/domain/entity"
	"github.com/Jayliang7/VideoSplice/internal/infra/memstore"
	"github.com/Jayliang7/VideoSplice/internal/worker"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testMaxUploadBytes = 1 << 20

// newTestApp wires the handler against a real in-memory store and a queue
// with no running workers, so enqueued jobs stay buffered during the test.
func newTestApp(t *testing.T, store *memstore.Store, queueCapacity int) (*fiber.App, string) {
	t.Helper()
	uploadDir := t.TempDir()
	// Zero workers: jobs stay buffered so tests can observe queue behavior.
	q := worker.NewQueue(queueCapacity, 0, nil, zap.NewNop())
	h := NewHandler(store, q, uploadDir, testMaxUploadBytes, zap.NewNop())
	return NewApp(h, []string{"http://localhost:3000"}, testMaxUploadBytes), uploadDir
}

func multipartUpload(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestUploadAccepted(t *testing.T) {
	store := memstore.New()
	app, uploadDir := newTestApp(t, store, 4)

	resp, err := app.Test(multipartUpload(t, "clip.mp4", []byte("video-bytes")))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	var body uploadResponse
	decodeJSON(t, resp, &body)
	jobID, err := uuid.Parse(body.JobID)
	require.NoError(t, err)

	snap, err := store.Snapshot(jobID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStateUploading, snap.State)
	assert.Equal(t, "clip.mp4", snap.SourceName)

	saved, err := os.ReadFile(filepath.Join(uploadDir, jobID.String()+".mp4"))
	require.NoError(t, err)
	assert.Equal(t, []byte("video-bytes"), saved)
}

func TestUploadMissingFileField(t *testing.T) {
	store := memstore.New()
	app, _ := newTestApp(t, store, 4)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewReader(nil))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, store.Snapshots())
}

func TestUploadOversizedRejectedWithoutJob(t *testing.T) {
	store := memstore.New()
	uploadDir := t.TempDir()
	q := worker.NewQueue(4, 0, nil, zap.NewNop())
	h := NewHandler(store, q, uploadDir, 10, zap.NewNop())
	app := NewApp(h, []string{"http://localhost:3000"}, testMaxUploadBytes)

	resp, err := app.Test(multipartUpload(t, "big.mp4", bytes.Repeat([]byte("x"), 64)))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)

	var body errorResponse
	decodeJSON(t, resp, &body)
	assert.Equal(t, string(entity.ErrKindOversizedUpload), body.Kind)
	assert.Empty(t, store.Snapshots(), "a rejected upload must not leave a job behind")
}

func TestUploadQueueFullPushesBack(t *testing.T) {
	store := memstore.New()
	app, uploadDir := newTestApp(t, store, 1)

	first, err := app.Test(multipartUpload(t, "a.mp4", []byte("a")))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusAccepted, first.StatusCode)
	first.Body.Close()

	second, err := app.Test(multipartUpload(t, "b.mp4", []byte("b")))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, second.StatusCode)
	second.Body.Close()

	assert.Len(t, store.Snapshots(), 1, "the rejected job must be removed from the store")

	// The rejected upload's file must not linger: untracked files are
	// invisible to the retention sweep.
	entries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "only the accepted job's upload may remain")
}

func TestStatusUnknownJob(t *testing.T) {
	store := memstore.New()
	app, _ := newTestApp(t, store, 4)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/status/"+uuid.NewString(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/status/not-a-uuid", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestStatusReportsStateProgressAndError(t *testing.T) {
	store := memstore.New()
	app, _ := newTestApp(t, store, 4)

	running := entity.NewJob("run.mp4", 1)
	require.NoError(t, store.Create(running))
	require.NoError(t, store.Update(running.ID, func(j *entity.Job) error {
		for _, s := range []entity.JobState{entity.JobStateUploading, entity.JobStateExtracting, entity.JobStateLabeling} {
			if err := j.Transition(s); err != nil {
				return err
			}
		}
		j.SetProgress(0.4)
		return nil
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/status/"+running.ID.String(), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body statusResponse
	decodeJSON(t, resp, &body)
	assert.Equal(t, entity.JobStateLabeling, body.State)
	assert.Equal(t, 0.4, body.Progress)
	assert.Nil(t, body.Error)

	failed := entity.NewJob("bad.mp4", 1)
	require.NoError(t, store.Create(failed))
	require.NoError(t, store.Update(failed.ID, func(j *entity.Job) error {
		if err := j.Transition(entity.JobStateUploading); err != nil {
			return err
		}
		return j.MarkFailed(entity.ErrKindDecodeFailure, "corrupt container")
	}))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/status/"+failed.ID.String(), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	decodeJSON(t, resp, &body)
	assert.Equal(t, entity.JobStateError, body.State)
	require.NotNil(t, body.Error)
	assert.Equal(t, entity.ErrKindDecodeFailure, body.Error.Kind)
}

func TestDownloadBeforeDoneConflicts(t *testing.T) {
	store := memstore.New()
	app, _ := newTestApp(t, store, 4)

	job := entity.NewJob("wip.mp4", 1)
	require.NoError(t, store.Create(job))
	require.NoError(t, store.Update(job.ID, func(j *entity.Job) error {
		return j.Transition(entity.JobStateUploading)
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/download/"+job.ID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestDownloadUnknownJob(t *testing.T) {
	store := memstore.New()
	app, _ := newTestApp(t, store, 4)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/download/"+uuid.NewString(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestDownloadServesArchiveForDoneJob(t *testing.T) {
	store := memstore.New()
	app, _ := newTestApp(t, store, 4)

	archivePath := filepath.Join(t.TempDir(), "result.zip")
	require.NoError(t, os.WriteFile(archivePath, []byte("zip-bytes"), 0o644))

	job := entity.NewJob("done.mp4", 1)
	require.NoError(t, store.Create(job))
	require.NoError(t, store.Update(job.ID, func(j *entity.Job) error {
		for _, s := range []entity.JobState{
			entity.JobStateUploading, entity.JobStateExtracting,
			entity.JobStateLabeling, entity.JobStatePackaging,
		} {
			if err := j.Transition(s); err != nil {
				return err
			}
		}
		return j.MarkDone(archivePath)
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/download/"+job.ID.String(), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), job.ID.String()+".zip")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, []byte("zip-bytes"), body)
}
