package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/Jayliang7/VideoSplice/internal/domain/entity"
	"github.com/Jayliang7/VideoSplice/internal/domain/port"
)

// recorder collects the ordered event stream of a pipeline run so tests
// can assert interleaving guarantees (e.g. cleanups between batches).
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

// maxRunBetween returns the longest run of `target` events without an
// intervening `separator`.
func (r *recorder) maxRunBetween(target, separator string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	longest, run := 0, 0
	for _, e := range r.events {
		switch e {
		case target:
			run++
			if run > longest {
				longest = run
			}
		case separator:
			run = 0
		}
	}
	return longest
}

type fakeGuard struct {
	rec *recorder
	// failOnCheck makes the Nth EnsureWithin call (1-based) fail; 0 never
	// fails.
	failOnCheck int
	checks      int
}

func (g *fakeGuard) Sample() port.MemoryReading {
	return port.MemoryReading{ResidentBytes: 1, Level: port.MemoryOk}
}

func (g *fakeGuard) EnsureWithin() error {
	g.rec.add("check")
	g.checks++
	if g.failOnCheck > 0 && g.checks >= g.failOnCheck {
		return fmt.Errorf("%w: 451MB > 450MB", entity.ErrMemoryLimitExceeded)
	}
	return nil
}

func (g *fakeGuard) ForceCleanup() {
	g.rec.add("cleanup")
}

type fakeLabeler struct {
	rec        *recorder
	configured bool
	// embed returns the embedding for a frame index; nil means the frame
	// is reported unavailable.
	embed func(index int) []float32
}

func (l *fakeLabeler) Configured() bool { return l.configured }

func (l *fakeLabeler) Reset() { l.rec.add("reset") }

func (l *fakeLabeler) Label(_ context.Context, frame entity.FrameRecord, _ string) entity.LabelResult {
	l.rec.add("label")
	if !l.configured {
		return entity.UnavailableLabel("labeling capability not configured")
	}
	if l.embed != nil {
		if emb := l.embed(frame.Index); emb != nil {
			return entity.LabelResult{Available: true, Embedding: emb, Model: "fake"}
		}
	}
	return entity.UnavailableLabel("fake outage")
}

// fakeStream produces count frames at 1/rate second spacing, writing a
// placeholder image file per frame so the real packager can archive them.
type fakeStream struct {
	framesDir  string
	count      int
	step       float64
	next       int
	failAt     int // index whose decode fails; -1 disables
	writeFiles bool
}

func (s *fakeStream) Props() port.VideoProps {
	return port.VideoProps{Duration: float64(s.count) * s.step, FPS: 30, Width: 640, Height: 480}
}

func (s *fakeStream) Total() int { return s.count }

func (s *fakeStream) Next(context.Context) (entity.FrameRecord, error) {
	if s.next >= s.count {
		return entity.FrameRecord{}, io.EOF
	}
	if s.failAt >= 0 && s.next == s.failAt {
		return entity.FrameRecord{}, fmt.Errorf("ffmpeg decode at %.3fs: corrupt packet", float64(s.next)*s.step)
	}

	index := s.next
	s.next++
	name := fmt.Sprintf("frame_%06d.jpg", index)
	if s.writeFiles {
		if err := os.WriteFile(filepath.Join(s.framesDir, name), []byte("jpeg"), 0o644); err != nil {
			return entity.FrameRecord{}, err
		}
	}
	return entity.FrameRecord{Index: index, Timestamp: float64(index) * s.step, Path: name}, nil
}

type fakeSampler struct {
	count   int
	step    float64
	failAt  int
	openErr error
}

func (s *fakeSampler) Open(_ context.Context, _ string, framesDir string) (port.FrameStream, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	failAt := s.failAt
	if failAt == 0 {
		failAt = -1
	}
	return &fakeStream{
		framesDir:  framesDir,
		count:      s.count,
		step:       s.step,
		failAt:     failAt,
		writeFiles: true,
	}, nil
}

// fakeClipper materializes one placeholder clip per non-empty span so the
// real packager can archive them.
type fakeClipper struct {
	calls int
}

func (c *fakeClipper) Cut(_ context.Context, _ string, clipsDir string, spans []port.ClipSpan) []entity.ClipRecord {
	c.calls++
	clips := make([]entity.ClipRecord, 0, len(spans))
	for i, span := range spans {
		if span.End <= span.Start {
			continue
		}
		name := fmt.Sprintf("clip_%03d.mp4", i)
		if err := os.WriteFile(filepath.Join(clipsDir, name), []byte("mp4"), 0o644); err != nil {
			continue
		}
		clips = append(clips, entity.ClipRecord{Index: i, Start: span.Start, End: span.End, Path: name})
	}
	return clips
}

type fakePackager struct {
	err   error
	calls int
}

func (p *fakePackager) Package(_ context.Context, in port.PackageInput) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return filepath.Join("/tmp", in.JobID+".zip"), nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *fakeNotifier) NotifyFailure(_ context.Context, jobID, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, jobID)
	return nil
}
