package port

import (
	"context"

	"github.com/Jayliang7/VideoSplice/internal/domain/entity"
)

// VideoProps are the immutable properties probed from a source video.
type VideoProps struct {
	Duration float64
	FPS      float64
	Width    int
	Height   int
}

// FrameStream is a lazy, finite, single-pass sequence of sampled frames,
// ordered by strictly increasing timestamp. Next returns io.EOF when the
// sequence is exhausted. At most one decoded frame is resident at a time.
type FrameStream interface {
	Props() VideoProps
	// Total is the number of frames the stream will produce.
	Total() int
	Next(ctx context.Context) (entity.FrameRecord, error)
}

// FrameSampler opens a source video for time-driven frame sampling.
// Construction fails before any decoding when the source exceeds the
// configured size limit.
type FrameSampler interface {
	Open(ctx context.Context, videoPath, framesDir string) (FrameStream, error)
}
