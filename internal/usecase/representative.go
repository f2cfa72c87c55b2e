package usecase

import (
	"math"

	"github.com/Jayliang7/VideoSplice/internal/domain/entity"
	"github.com/Jayliang7/VideoSplice/internal/domain/port"
)

// segmentFrames buckets frames into fixed time segments. Frames arrive in
// ascending timestamp order, so segments are contiguous runs.
func segmentFrames(frames []entity.FrameRecord, segmentSeconds float64) [][]entity.FrameRecord {
	var segments [][]entity.FrameRecord
	currentSeg := -1
	for _, frame := range frames {
		seg := int(frame.Timestamp / segmentSeconds)
		if seg != currentSeg {
			segments = append(segments, nil)
			currentSeg = seg
		}
		segments[len(segments)-1] = append(segments[len(segments)-1], frame)
	}
	return segments
}

// selectRepresentatives picks one frame per fixed time segment to stand in
// for that span of the source. When embeddings are available for a
// segment, the frame nearest the segment's embedding centroid wins;
// otherwise the middle frame of the segment is used.
func selectRepresentatives(
	frames []entity.FrameRecord,
	labels map[int]entity.LabelResult,
	segmentSeconds float64,
) []entity.FrameRecord {
	if len(frames) == 0 {
		return nil
	}

	segments := segmentFrames(frames, segmentSeconds)
	reps := make([]entity.FrameRecord, 0, len(segments))
	for _, seg := range segments {
		reps = append(reps, pickRepresentative(seg, labels))
	}
	return reps
}

// clipSpans maps each segment to the time window its frames cover. The
// clipper skips zero-length windows (single-frame segments).
func clipSpans(frames []entity.FrameRecord, segmentSeconds float64) []port.ClipSpan {
	segments := segmentFrames(frames, segmentSeconds)
	spans := make([]port.ClipSpan, 0, len(segments))
	for _, seg := range segments {
		spans = append(spans, port.ClipSpan{
			Start: seg[0].Timestamp,
			End:   seg[len(seg)-1].Timestamp,
		})
	}
	return spans
}

func pickRepresentative(segment []entity.FrameRecord, labels map[int]entity.LabelResult) entity.FrameRecord {
	embedded := make([]entity.FrameRecord, 0, len(segment))
	for _, frame := range segment {
		if label, ok := labels[frame.Index]; ok && label.Available && len(label.Embedding) > 0 {
			embedded = append(embedded, frame)
		}
	}
	if len(embedded) == 0 {
		return segment[len(segment)/2]
	}

	centroid := embeddingCentroid(embedded, labels)

	best := embedded[0]
	bestDist := math.MaxFloat64
	for _, frame := range embedded {
		d := euclideanDistance(labels[frame.Index].Embedding, centroid)
		if d < bestDist {
			bestDist = d
			best = frame
		}
	}
	return best
}

func embeddingCentroid(frames []entity.FrameRecord, labels map[int]entity.LabelResult) []float64 {
	dim := len(labels[frames[0].Index].Embedding)
	centroid := make([]float64, dim)
	for _, frame := range frames {
		emb := labels[frame.Index].Embedding
		for i := 0; i < dim && i < len(emb); i++ {
			centroid[i] += float64(emb[i])
		}
	}
	for i := range centroid {
		centroid[i] /= float64(len(frames))
	}
	return centroid
}

func euclideanDistance(emb []float32, centroid []float64) float64 {
	var sum float64
	for i := 0; i < len(centroid) && i < len(emb); i++ {
		d := float64(emb[i]) - centroid[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
