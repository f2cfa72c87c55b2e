package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Jayliang7/VideoSplice/internal/domain/port"
)

// fpsFallback substitutes for the near-zero frame rates ffprobe reports on
// some variable-frame-rate containers.
const fpsFallback = 30.0

func probeVideo(ctx context.Context, videoPath string) (port.VideoProps, error) {
	duration, err := probeDuration(ctx, videoPath)
	if err != nil {
		return port.VideoProps{}, err
	}

	props := port.VideoProps{Duration: duration, FPS: fpsFallback}

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,avg_frame_rate",
		"-of", "csv=p=0",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return port.VideoProps{}, fmt.Errorf("ffprobe stream: %w", err)
	}

	fields := strings.Split(strings.TrimSpace(string(output)), ",")
	if len(fields) >= 3 {
		props.Width, _ = strconv.Atoi(fields[0])
		props.Height, _ = strconv.Atoi(fields[1])
		if fps := parseFrameRate(fields[2]); fps > 1e-3 {
			props.FPS = fps
		}
	}

	return props, nil
}

func probeDuration(ctx context.Context, videoPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	durationStr := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", durationStr, err)
	}
	return duration, nil
}

// parseFrameRate handles ffprobe's rational form, e.g. "30000/1001".
func parseFrameRate(raw string) float64 {
	num, den, found := strings.Cut(raw, "/")
	if !found {
		fps, _ := strconv.ParseFloat(raw, 64)
		return fps
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
