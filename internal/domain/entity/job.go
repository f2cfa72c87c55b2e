package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type JobState string

const (
	JobStateQueued     JobState = "QUEUED"
	JobStateUploading  JobState = "UPLOADING"
	JobStateExtracting JobState = "EXTRACTING"
	JobStateLabeling   JobState = "LABELING"
	JobStatePackaging  JobState = "PACKAGING"
	JobStateDone       JobState = "DONE"
	JobStateError      JobState = "ERROR"
)

// transitions is the full set of legal state changes. A state never
// re-enters itself or an earlier state; a failed job is terminal.
var transitions = map[JobState][]JobState{
	JobStateQueued:     {JobStateUploading},
	JobStateUploading:  {JobStateExtracting, JobStateError},
	JobStateExtracting: {JobStateLabeling, JobStateError},
	JobStateLabeling:   {JobStatePackaging, JobStateError},
	JobStatePackaging:  {JobStateDone, JobStateError},
}

func (s JobState) Terminal() bool {
	return s == JobStateDone || s == JobStateError
}

func (s JobState) canTransitionTo(next JobState) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Job struct {
	ID          uuid.UUID
	State       JobState
	Progress    float64
	Err         *JobError
	SourceName  string
	SourcePath  string
	SourceSize  int64
	Frames      []FrameRecord
	Labels      map[int]LabelResult
	ArchivePath string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

func NewJob(sourceName string, sourceSize int64) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:         uuid.New(),
		State:      JobStateQueued,
		SourceName: sourceName,
		SourceSize: sourceSize,
		Labels:     make(map[int]LabelResult),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Transition moves the job to next, rejecting anything outside the
// lifecycle table. Terminal transitions must go through MarkDone or
// MarkFailed so their payload lands in the same write.
func (j *Job) Transition(next JobState) error {
	if !j.State.canTransitionTo(next) {
		return fmt.Errorf("illegal job transition %s -> %s", j.State, next)
	}
	j.State = next
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// SetProgress advances the progress fraction. Progress never regresses
// and freezes once the job is terminal.
func (j *Job) SetProgress(p float64) {
	if j.State.Terminal() {
		return
	}
	if p > 1 {
		p = 1
	}
	if p > j.Progress {
		j.Progress = p
		j.UpdatedAt = time.Now().UTC()
	}
}

// MarkDone publishes the archive path atomically with the Done state so
// a reader can never observe Done without an archive.
func (j *Job) MarkDone(archivePath string) error {
	if !j.State.canTransitionTo(JobStateDone) {
		return fmt.Errorf("illegal job transition %s -> %s", j.State, JobStateDone)
	}
	now := time.Now().UTC()
	j.State = JobStateDone
	j.ArchivePath = archivePath
	j.Progress = 1
	j.UpdatedAt = now
	j.CompletedAt = &now
	return nil
}

// MarkFailed records the error kind and detail. Progress stays frozen at
// its last value.
func (j *Job) MarkFailed(kind ErrorKind, detail string) error {
	if !j.State.canTransitionTo(JobStateError) {
		return fmt.Errorf("illegal job transition %s -> %s", j.State, JobStateError)
	}
	now := time.Now().UTC()
	j.State = JobStateError
	j.Err = &JobError{Kind: kind, Detail: detail}
	j.UpdatedAt = now
	j.CompletedAt = &now
	return nil
}

// Snapshot is the read-side view handed to the status boundary. It is a
// value copy: readers never share memory with the pipeline's Job.
type Snapshot struct {
	ID          uuid.UUID
	State       JobState
	Progress    float64
	Err         *JobError
	SourceName  string
	SourcePath  string
	SourceSize  int64
	FrameCount  int
	ArchivePath string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

func (j *Job) Snapshot() Snapshot {
	snap := Snapshot{
		ID:          j.ID,
		State:       j.State,
		Progress:    j.Progress,
		SourceName:  j.SourceName,
		SourcePath:  j.SourcePath,
		SourceSize:  j.SourceSize,
		FrameCount:  len(j.Frames),
		ArchivePath: j.ArchivePath,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
	if j.Err != nil {
		errCopy := *j.Err
		snap.Err = &errCopy
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		snap.CompletedAt = &t
	}
	return snap
}
