package port

import (
	"context"

	"github.com/Jayliang7/VideoSplice/internal/domain/entity"
)

// FrameLabeler annotates a single frame via the external labeling
// capability. An unconfigured or failing service is reported through the
// Unavailable result value, never through the error return, so labeling
// degrades the archive's metadata without failing the job.
type FrameLabeler interface {
	Label(ctx context.Context, frame entity.FrameRecord, framesDir string) entity.LabelResult
	// Configured reports whether the capability has an endpoint at all.
	Configured() bool
	// Reset clears failure tracking carried over from a previous job. The
	// pipeline calls it when a job enters the labeling stage, so an outage
	// during one job never silences labeling for the jobs after it.
	Reset()
}
