package archive

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Jayliang7/VideoSplice/internal/domain/entity"
	"github.com/Jayliang7/VideoSplice/internal/domain/port"
	"go.uber.org/zap"
)

const manifestName = "manifest.json"

// Packager assembles the downloadable zip: one entry per retained frame
// plus a manifest associating timestamps, labels and representatives.
// The archive is written to a temporary path and renamed into place, so a
// partially written file is never published.
type Packager struct {
	outputDir string
	logger    *zap.Logger
}

func NewPackager(outputDir string, logger *zap.Logger) *Packager {
	return &Packager{outputDir: outputDir, logger: logger}
}

type manifest struct {
	JobID           string               `json:"job_id"`
	Video           manifestVideo        `json:"video"`
	SampleRateHz    float64              `json:"sample_rate_hz"`
	Frames          []manifestFrame      `json:"frames"`
	Representatives []entity.FrameRecord `json:"representatives"`
	Clips           []entity.ClipRecord  `json:"clips"`
}

type manifestVideo struct {
	Duration float64 `json:"duration_seconds"`
	FPS      float64 `json:"fps"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

type manifestFrame struct {
	Index     int                `json:"index"`
	Timestamp float64            `json:"timestamp"`
	File      string             `json:"file"`
	Label     entity.LabelResult `json:"label"`
}

func (p *Packager) Package(ctx context.Context, in port.PackageInput) (string, error) {
	finalPath := filepath.Join(p.outputDir, in.JobID+".zip")
	tmpPath := finalPath + ".tmp"

	if err := p.writeArchive(ctx, tmpPath, in); err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("publish archive: %w", err)
	}

	p.logger.Info("archive packaged",
		zap.String("job_id", in.JobID),
		zap.Int("frame_count", len(in.Frames)),
		zap.String("path", finalPath),
	)
	return finalPath, nil
}

func (p *Packager) writeArchive(ctx context.Context, path string, in port.PackageInput) error {
	zipFile, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	defer zipFile.Close()

	zw := zip.NewWriter(zipFile)

	for _, frame := range in.Frames {
		select {
		case <-ctx.Done():
			zw.Close()
			return ctx.Err()
		default:
		}

		src := filepath.Join(in.FramesDir, frame.Path)
		if err := addFileToZip(zw, src, filepath.Join("frames", frame.Path)); err != nil {
			zw.Close()
			return fmt.Errorf("add frame %s: %w", frame.Path, err)
		}
	}

	for _, clip := range in.Clips {
		select {
		case <-ctx.Done():
			zw.Close()
			return ctx.Err()
		default:
		}

		src := filepath.Join(in.ClipsDir, clip.Path)
		if err := addFileToZip(zw, src, filepath.Join("clips", clip.Path)); err != nil {
			zw.Close()
			return fmt.Errorf("add clip %s: %w", clip.Path, err)
		}
	}

	if err := p.writeManifest(zw, in); err != nil {
		zw.Close()
		return fmt.Errorf("write manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return zipFile.Sync()
}

func (p *Packager) writeManifest(zw *zip.Writer, in port.PackageInput) error {
	m := manifest{
		JobID: in.JobID,
		Video: manifestVideo{
			Duration: in.Props.Duration,
			FPS:      in.Props.FPS,
			Width:    in.Props.Width,
			Height:   in.Props.Height,
		},
		SampleRateHz:    in.SampleRateHz,
		Frames:          make([]manifestFrame, 0, len(in.Frames)),
		Representatives: in.Representatives,
		Clips:           make([]entity.ClipRecord, 0, len(in.Clips)),
	}
	if m.Representatives == nil {
		m.Representatives = []entity.FrameRecord{}
	}
	for _, clip := range in.Clips {
		clip.Path = filepath.Join("clips", clip.Path)
		m.Clips = append(m.Clips, clip)
	}

	for _, frame := range in.Frames {
		label, ok := in.Labels[frame.Index]
		if !ok {
			label = entity.UnavailableLabel("not labeled")
		}
		m.Frames = append(m.Frames, manifestFrame{
			Index:     frame.Index,
			Timestamp: frame.Timestamp,
			File:      filepath.Join("frames", frame.Path),
			Label:     label,
		})
	}

	w, err := zw.Create(manifestName)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

func addFileToZip(zw *zip.Writer, srcPath, entryName string) error {
	file, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.ToSlash(entryName)
	header.Method = zip.Deflate

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(writer, file)
	return err
}
