package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/Jayliang7/VideoSplice/internal/domain/entity"
	"github.com/Jayliang7/VideoSplice/internal/domain/port"
	"go.uber.org/zap"
)

// Clipper cuts one clip per span with a stream copy, so no frame is ever
// re-encoded or held in memory. A failed cut is logged and skipped; the
// archive just carries fewer clips.
type Clipper struct {
	logger *zap.Logger
}

func NewClipper(logger *zap.Logger) *Clipper {
	return &Clipper{logger: logger}
}

func (c *Clipper) Cut(ctx context.Context, videoPath, clipsDir string, spans []port.ClipSpan) []entity.ClipRecord {
	clips := make([]entity.ClipRecord, 0, len(spans))

	for i, span := range spans {
		if span.End <= span.Start {
			continue
		}

		filename := fmt.Sprintf("clip_%03d.mp4", i)
		outPath := filepath.Join(clipsDir, filename)

		cmd := exec.CommandContext(ctx, "ffmpeg",
			"-ss", fmt.Sprintf("%.3f", span.Start),
			"-t", fmt.Sprintf("%.3f", span.End-span.Start),
			"-i", videoPath,
			"-c", "copy",
			"-y",
			outPath,
		)
		if output, err := cmd.CombinedOutput(); err != nil {
			c.logger.Warn("clip cut failed, skipping",
				zap.Float64("start", span.Start),
				zap.Float64("end", span.End),
				zap.Error(err),
				zap.ByteString("ffmpeg_output", output),
			)
			os.Remove(outPath)
			continue
		}
		if _, err := os.Stat(outPath); err != nil {
			c.logger.Warn("clip cut produced no file, skipping",
				zap.Float64("start", span.Start),
				zap.Float64("end", span.End),
			)
			continue
		}

		clips = append(clips, entity.ClipRecord{
			Index: i,
			Start: span.Start,
			End:   span.End,
			Path:  filename,
		})
	}

	return clips
}
