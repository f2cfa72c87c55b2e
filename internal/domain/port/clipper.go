package port

import (
	"context"

	"github.com/Jayliang7/VideoSplice/internal/domain/entity"
)

// ClipSpan is a time window of the source video to cut a clip from.
type ClipSpan struct {
	Start float64
	End   float64
}

// ClipExtractor cuts a clip per representative segment. A failed or
// zero-length cut skips that clip; clipping degrades the archive's extras,
// it never fails the job.
type ClipExtractor interface {
	Cut(ctx context.Context, videoPath, clipsDir string, spans []ClipSpan) []entity.ClipRecord
}
