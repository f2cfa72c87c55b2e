package entity

// FrameRecord is one sampled frame. The image itself lives on disk inside
// the job's run directory; only the reference is kept on the Job.
type FrameRecord struct {
	Index     int     `json:"index"`
	Timestamp float64 `json:"timestamp"`
	Path      string  `json:"path"`
}

// LabelResult is the outcome of one labeling call. Service absence or a
// per-frame failure is the Unavailable value, not an error.
type LabelResult struct {
	Available bool      `json:"available"`
	Embedding []float32 `json:"embedding,omitempty"`
	Model     string    `json:"model,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

func UnavailableLabel(reason string) LabelResult {
	return LabelResult{Available: false, Reason: reason}
}

// ClipRecord is one cut of the source video covering a representative
// segment. Like frames, the media lives on disk in the run directory.
type ClipRecord struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Path  string  `json:"path"`
}
