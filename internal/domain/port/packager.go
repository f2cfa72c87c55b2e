package port

import (
	"context"

	"github.com/Jayliang7/VideoSplice/internal/domain/entity"
)

// PackageInput is everything the packager needs to assemble the archive.
type PackageInput struct {
	JobID           string
	FramesDir       string
	ClipsDir        string
	Props           VideoProps
	SampleRateHz    float64
	Frames          []entity.FrameRecord
	Labels          map[int]entity.LabelResult
	Representatives []entity.FrameRecord
	Clips           []entity.ClipRecord
}

// OutputPackager writes the archive for a finished job and returns its
// final path. The write must be atomic from the consumer's point of view:
// a partial archive is never published.
type OutputPackager interface {
	Package(ctx context.Context, in PackageInput) (string, error)
}
