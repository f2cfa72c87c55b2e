package labeling

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"io"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/Jayliang7/VideoSplice/internal/domain/entity"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

const (
	reasonNotConfigured    = "labeling capability not configured"
	reasonPersistentOutage = "labeling capability unavailable after repeated failures"
)

// Client calls the external feature-extraction endpoint per frame. It is a
// capability, not a dependency: no endpoint or token means every call
// short-circuits to an Unavailable result with no network I/O, and a
// per-frame failure degrades only that frame's metadata. After
// maxConsecutiveFailures straight failures the client trips open and skips
// the network for the remainder of the job; Reset rearms it when the next
// job starts labeling.
type Client struct {
	endpoint     string
	token        string
	model        string
	maxImageEdge int
	maxFailures  int
	httpClient   *http.Client
	logger       *zap.Logger

	// Counter of failures with no success in between. Atomic because the
	// client is shared across worker goroutines.
	consecutiveFailures atomic.Int32
}

type Options struct {
	Endpoint     string
	Token        string
	Model        string
	Timeout      time.Duration
	MaxImageEdge int
	MaxFailures  int
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	return &Client{
		endpoint:     opts.Endpoint,
		token:        opts.Token,
		model:        opts.Model,
		maxImageEdge: opts.MaxImageEdge,
		maxFailures:  opts.MaxFailures,
		httpClient:   &http.Client{Timeout: opts.Timeout},
		logger:       logger,
	}
}

func (c *Client) Configured() bool {
	return c.endpoint != "" && c.token != ""
}

// tripped reports whether the consecutive-failure threshold was crossed,
// signaling a persistent outage rather than a transient per-frame issue.
func (c *Client) tripped() bool {
	return c.maxFailures > 0 && int(c.consecutiveFailures.Load()) >= c.maxFailures
}

// Reset rearms a tripped client. The outage verdict only ever applies to
// the job that observed it.
func (c *Client) Reset() {
	c.consecutiveFailures.Store(0)
}

func (c *Client) Label(ctx context.Context, frame entity.FrameRecord, framesDir string) entity.LabelResult {
	if !c.Configured() {
		return entity.UnavailableLabel(reasonNotConfigured)
	}
	if c.tripped() {
		return entity.UnavailableLabel(reasonPersistentOutage)
	}

	embedding, err := c.embed(ctx, filepath.Join(framesDir, frame.Path))
	if err != nil {
		failures := c.consecutiveFailures.Add(1)
		c.logger.Warn("frame labeling failed",
			zap.Int("frame_index", frame.Index),
			zap.Int32("consecutive_failures", failures),
			zap.Error(err),
		)
		return entity.UnavailableLabel(err.Error())
	}

	c.consecutiveFailures.Store(0)
	return entity.LabelResult{
		Available: true,
		Embedding: embedding,
		Model:     c.model,
	}
}

type embedRequest struct {
	Inputs string `json:"inputs"`
}

func (c *Client) embed(ctx context.Context, imagePath string) ([]float32, error) {
	dataURI, err := c.encodeImage(imagePath)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	body, err := json.Marshal(embedRequest{Inputs: dataURI})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call labeling endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("labeling endpoint returned %d: %s", resp.StatusCode, string(payload))
	}

	return decodeEmbedding(resp.Body)
}

// encodeImage loads the frame, downscales it to the model's input size and
// returns a base64 data URI. Downscaling bounds both the request payload
// and the resident image memory per call.
func (c *Client) encodeImage(imagePath string) (string, error) {
	img, err := imaging.Open(imagePath)
	if err != nil {
		return "", err
	}
	if c.maxImageEdge > 0 {
		img = imaging.Fit(img, c.maxImageEdge, c.maxImageEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// decodeEmbedding accepts both the flat vector and the single-row matrix
// shapes feature-extraction endpoints return.
func decodeEmbedding(r io.Reader) ([]float32, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var flat []float32
	if err := json.Unmarshal(raw, &flat); err == nil && len(flat) > 0 {
		return flat, nil
	}

	var nested [][]float32
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return nested[0], nil
	}

	return nil, fmt.Errorf("unexpected embedding response shape")
}
