package capture

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const doctorCacheTTL = 5 * time.Minute

// Capabilities reports whether the capture toolchain is usable on this
// machine.
type Capabilities struct {
	HasFFmpeg      bool      `json:"has_ffmpeg"`
	HasFFprobe     bool      `json:"has_ffprobe"`
	FFmpegVersion  string    `json:"ffmpeg_version,omitempty"`
	FFmpegPath     string    `json:"ffmpeg_path,omitempty"`
	FFprobePath    string    `json:"ffprobe_path,omitempty"`
	ProbedAt       time.Time `json:"probed_at"`
}

func (c *Capabilities) CanCapture() bool {
	return c.HasFFmpeg && c.HasFFprobe
}

// Doctor probes for ffmpeg/ffprobe and caches the result so status
// requests do not fork a subprocess every time.
type Doctor struct {
	ffmpegPath  string
	ffprobePath string
	ttl         time.Duration
	logger      *slog.Logger

	mu     sync.RWMutex
	cached *Capabilities
}

func NewDoctor(ffmpegPath, ffprobePath string, logger *slog.Logger) *Doctor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Doctor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		ttl:         doctorCacheTTL,
		logger:      logger,
	}
}

// Get returns cached capabilities if fresh, otherwise re-probes.
func (d *Doctor) Get(ctx context.Context) *Capabilities {
	d.mu.RLock()
	if d.cached != nil && time.Since(d.cached.ProbedAt) < d.ttl {
		caps := d.cached
		d.mu.RUnlock()
		return caps
	}
	d.mu.RUnlock()

	return d.Refresh(ctx)
}

// Refresh forces a new probe regardless of cache freshness.
func (d *Doctor) Refresh(ctx context.Context) *Capabilities {
	d.mu.Lock()
	defer d.mu.Unlock()

	caps := &Capabilities{ProbedAt: time.Now()}

	if path, err := exec.LookPath(d.ffmpegPath); err == nil {
		caps.HasFFmpeg = true
		caps.FFmpegPath = path
		caps.FFmpegVersion = probeVersion(ctx, path)
	}
	if path, err := exec.LookPath(d.ffprobePath); err == nil {
		caps.HasFFprobe = true
		caps.FFprobePath = path
	}

	if d.logger != nil {
		d.logger.Info("capture toolchain probed",
			"ffmpeg", caps.HasFFmpeg, "ffprobe", caps.HasFFprobe, "version", caps.FFmpegVersion)
	}

	d.cached = caps
	return caps
}

func probeVersion(ctx context.Context, ffmpegPath string) string {
	ctx, cancel := context.WithTimeout(ctx, defaultProbeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, ffmpegPath, "-version").Output()
	if err != nil {
		return ""
	}

	// First line looks like "ffmpeg version 6.1.1 Copyright ...".
	line, _, _ := strings.Cut(string(out), "\n")
	fields := strings.Fields(line)
	if len(fields) >= 3 && fields[0] == "ffmpeg" && fields[1] == "version" {
		return fields[2]
	}
	return ""
}
