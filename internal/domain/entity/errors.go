package entity

import "errors"

// ErrorKind tags a terminal job failure for the status boundary.
type ErrorKind string

const (
	ErrKindOversizedUpload     ErrorKind = "OVERSIZED_UPLOAD"
	ErrKindDecodeFailure       ErrorKind = "DECODE_FAILURE"
	ErrKindMemoryLimitExceeded ErrorKind = "MEMORY_LIMIT_EXCEEDED"
	ErrKindPackagingFailure    ErrorKind = "PACKAGING_FAILURE"
)

type JobError struct {
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail"`
}

func (e *JobError) Error() string {
	return string(e.Kind) + ": " + e.Detail
}

var (
	// ErrOversizedSource rejects a video before any decoding begins.
	ErrOversizedSource = errors.New("source video exceeds size limit")

	// ErrMemoryLimitExceeded is returned by the memory guard when resident
	// usage crosses the hard limit.
	ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

	// ErrJobNotFound is returned by the job store for unknown ids.
	ErrJobNotFound = errors.New("job not found")
)
