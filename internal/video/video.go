// Package video owns the currently loaded video: validating it, probing
// its duration, translating storyboard timestamps back into seek
// positions, and streaming its bytes to the local player UI.
package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/unistory/storyboard-agent/internal/capture"
	"github.com/unistory/storyboard-agent/internal/timecode"
)

var (
	ErrNoVideo      = errors.New("no video loaded")
	ErrNotVideoFile = errors.New("not a recognized video file")
)

var videoExtensions = map[string]bool{
	".mp4": true,
	".mov": true,
	".mkv": true,
	".m4v": true,
	".avi": true,
}

// Info describes the loaded video.
type Info struct {
	Path     string  `json:"path"`
	Filename string  `json:"filename"`
	Size     int64   `json:"size"`
	Duration float64 `json:"duration"` // seconds; 0 when the probe failed
}

// Player holds at most one loaded video at a time; loading another
// replaces it.
type Player struct {
	grabber capture.Grabber
	logger  *slog.Logger

	mu   sync.RWMutex
	info *Info
}

func NewPlayer(grabber capture.Grabber, logger *slog.Logger) *Player {
	return &Player{grabber: grabber, logger: logger}
}

// Load validates the file and makes it the current video. The duration
// probe is best-effort: a video that ffprobe cannot read still loads,
// with Duration left at zero.
func (p *Player) Load(ctx context.Context, path string) (*Info, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("video does not exist: %w", err)
	}
	if stat.IsDir() {
		return nil, ErrNotVideoFile
	}
	if !IsVideoFile(absPath) {
		return nil, ErrNotVideoFile
	}

	info := &Info{
		Path:     absPath,
		Filename: filepath.Base(absPath),
		Size:     stat.Size(),
	}

	if duration, err := p.grabber.Duration(ctx, absPath); err == nil {
		info.Duration = duration
	} else if p.logger != nil {
		p.logger.Warn("duration probe failed", "path", absPath, "error", err)
	}

	p.mu.Lock()
	p.info = info
	p.mu.Unlock()

	if p.logger != nil {
		p.logger.Info("video loaded", "path", absPath, "duration", info.Duration, "size", info.Size)
	}
	return info, nil
}

// Info returns the loaded video, if any.
func (p *Player) Info() (*Info, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.info == nil {
		return nil, false
	}
	info := *p.info
	return &info, true
}

// Path returns the loaded video's path or ErrNoVideo.
func (p *Player) Path() (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.info == nil {
		return "", ErrNoVideo
	}
	return p.info.Path, nil
}

// SeekTarget converts a frame timestamp (MM:SS or H:MM:SS) into the
// position the player should jump to, clamped into the video when the
// duration is known. A malformed timestamp fails with
// timecode.ErrInvalidFormat and no seek is attempted.
func (p *Player) SeekTarget(timestamp string) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.info == nil {
		return 0, ErrNoVideo
	}

	seconds, err := timecode.Parse(timestamp)
	if err != nil {
		return 0, err
	}

	target := float64(seconds)
	if p.info.Duration > 0 && target > p.info.Duration {
		target = p.info.Duration
	}
	return target, nil
}

// IsVideoFile reports whether the filename carries a playable video
// extension.
func IsVideoFile(filename string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(filename))]
}
