package port

import "context"

// FailureNotifier reports a terminal job failure to an operator channel.
// Missing configuration disables it; it never fails the job.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, jobID string, sourceName string, errorMsg string) error
}
