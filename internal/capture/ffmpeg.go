package capture

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const (
	defaultGrabTimeout  = 30 * time.Second
	defaultProbeTimeout = 10 * time.Second
	maxStderrBytes      = 8 * 1024 // stderr tail kept for diagnostics
)

// FFmpegGrabber extracts stills by running ffmpeg as a subprocess, with an
// accurate (pre-input) seek and a single JPEG frame written to stdout.
type FFmpegGrabber struct {
	ffmpegPath  string
	ffprobePath string
	logger      *slog.Logger
}

func NewFFmpegGrabber(ffmpegPath, ffprobePath string, logger *slog.Logger) *FFmpegGrabber {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegGrabber{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, logger: logger}
}

func (g *FFmpegGrabber) Grab(ctx context.Context, videoPath string, atSeconds float64) (*Result, error) {
	if atSeconds < 0 {
		atSeconds = 0
	}

	// Clamp into the video so a seek past the end still yields the last
	// frame rather than an empty output.
	if duration, err := g.Duration(ctx, videoPath); err == nil && duration > 0 && atSeconds > duration {
		atSeconds = duration
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGrabTimeout)
	defer cancel()

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(atSeconds, 'f', 3, 64),
		"-i", videoPath,
		"-frames:v", "1",
		"-f", "image2",
		"-c:v", "mjpeg",
		"-q:v", "2",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, g.ffmpegPath, args...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &limitedWriter{w: &stderr, limit: maxStderrBytes}

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		if g.logger != nil {
			g.logger.Warn("ffmpeg grab failed",
				"path", videoPath, "at", atSeconds,
				"stderr", strings.TrimSpace(stderr.String()), "error", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if stdout.Len() == 0 {
		return nil, ErrUnavailable
	}

	if g.logger != nil {
		g.logger.Debug("frame grabbed",
			"at", atSeconds, "bytes", stdout.Len(), "duration_ms", time.Since(start).Milliseconds())
	}
	return &Result{Image: stdout.Bytes(), ActualTime: atSeconds}, nil
}

func (g *FFmpegGrabber) Duration(ctx context.Context, videoPath string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultProbeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe output %q: %w", strings.TrimSpace(string(out)), err)
	}
	return duration, nil
}

// limitedWriter keeps only the first limit bytes written to it.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	remaining := lw.limit - lw.w.Len()
	if remaining > 0 {
		if len(p) > remaining {
			lw.w.Write(p[:remaining])
		} else {
			lw.w.Write(p)
		}
	}
	return len(p), nil
}
