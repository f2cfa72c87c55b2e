package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/Jayliang7/VideoSplice/internal/domain/entity"
	"github.com/Jayliang7/VideoSplice/internal/domain/port"
	"go.uber.org/zap"
)

// Sampler produces frames at a fixed temporal interval, decoding one frame
// per ffmpeg invocation so no more than a single decoded frame is ever
// resident. Sampling is capped at maxClipSeconds of source time.
type Sampler struct {
	sampleRateHz   float64
	maxClipSeconds float64
	maxSourceBytes int64
	format         string
	logger         *zap.Logger
}

func NewSampler(sampleRateHz, maxClipSeconds float64, maxSourceBytes int64, format string, logger *zap.Logger) *Sampler {
	return &Sampler{
		sampleRateHz:   sampleRateHz,
		maxClipSeconds: maxClipSeconds,
		maxSourceBytes: maxSourceBytes,
		format:         format,
		logger:         logger,
	}
}

// Open validates the source and plans the offset schedule. The size check
// happens before any decoding; the schedule covers
// ceil(min(duration, maxClipSeconds) * sampleRateHz) frames.
func (s *Sampler) Open(ctx context.Context, videoPath, framesDir string) (port.FrameStream, error) {
	info, err := os.Stat(videoPath)
	if err != nil {
		return nil, fmt.Errorf("stat source video: %w", err)
	}
	if s.maxSourceBytes > 0 && info.Size() > s.maxSourceBytes {
		return nil, fmt.Errorf("%w: %d bytes > %d bytes", entity.ErrOversizedSource, info.Size(), s.maxSourceBytes)
	}

	props, err := probeVideo(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("probe video: %w", err)
	}
	if props.Duration <= 0 {
		return nil, fmt.Errorf("video has no decodable duration")
	}

	total := sampleCount(props.Duration, s.maxClipSeconds, s.sampleRateHz)

	s.logger.Info("frame sampling planned",
		zap.Float64("duration_secs", props.Duration),
		zap.Float64("sample_rate_hz", s.sampleRateHz),
		zap.Int("frames", total),
	)

	return &frameStream{
		videoPath: videoPath,
		framesDir: framesDir,
		props:     props,
		step:      1 / s.sampleRateHz,
		total:     total,
		format:    s.format,
	}, nil
}

// sampleCount is the number of frames the time-driven cursor will visit:
// ceil of the sampled span times the rate, capped at maxClipSeconds of
// source time. Frames beyond the cap are never produced.
func sampleCount(duration, maxClipSeconds, sampleRateHz float64) int {
	sampled := duration
	if sampled > maxClipSeconds {
		sampled = maxClipSeconds
	}
	total := int(math.Ceil(sampled * sampleRateHz))
	if total == 0 {
		total = 1
	}
	return total
}

type frameStream struct {
	videoPath string
	framesDir string
	props     port.VideoProps
	step      float64
	total     int
	next      int
	format    string
}

func (fs *frameStream) Props() port.VideoProps { return fs.props }

func (fs *frameStream) Total() int { return fs.total }

// Next advances the time cursor by one step and decodes the frame nearest
// that offset. Intermediate frames are skipped inside ffmpeg's seek and
// never materialized here.
func (fs *frameStream) Next(ctx context.Context) (entity.FrameRecord, error) {
	if fs.next >= fs.total {
		return entity.FrameRecord{}, io.EOF
	}

	index := fs.next
	offset := float64(index) * fs.step
	filename := fmt.Sprintf("frame_%06d.%s", index, fs.format)
	outPath := filepath.Join(fs.framesDir, filename)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-ss", fmt.Sprintf("%.3f", offset),
		"-i", fs.videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		"-y",
		outPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return entity.FrameRecord{}, fmt.Errorf("ffmpeg decode at %.3fs: %w, output: %s", offset, err, string(output))
	}
	if _, err := os.Stat(outPath); err != nil {
		return entity.FrameRecord{}, fmt.Errorf("no frame decoded at %.3fs", offset)
	}

	fs.next++
	return entity.FrameRecord{
		Index:     index,
		Timestamp: offset,
		Path:      filename,
	}, nil
}
