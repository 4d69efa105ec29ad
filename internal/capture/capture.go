// Package capture obtains still images from a video at a requested time
// position. The production implementation shells out to ffmpeg; a stub
// stands in on machines without it and in tests.
package capture

import (
	"context"
	"errors"
	"log/slog"
)

// ErrUnavailable reports that no frame could be produced for the request.
// The caller leaves the pending slot untouched.
var ErrUnavailable = errors.New("no frame produced")

// Result is a completed capture: the encoded still and the time position
// it actually corresponds to, in seconds.
type Result struct {
	Image      []byte
	ActualTime float64
}

type Grabber interface {
	// Grab extracts one still from videoPath at atSeconds. The returned
	// ActualTime may differ from the request (clamped to the video's
	// duration, snapped by the decoder).
	Grab(ctx context.Context, videoPath string, atSeconds float64) (*Result, error)

	// Duration probes the length of the video in seconds.
	Duration(ctx context.Context, videoPath string) (float64, error)
}

// StubGrabber returns a fixed payload instead of decoding video.
type StubGrabber struct {
	logger *slog.Logger
}

func NewStubGrabber(logger *slog.Logger) *StubGrabber {
	return &StubGrabber{logger: logger}
}

func (g *StubGrabber) Grab(ctx context.Context, videoPath string, atSeconds float64) (*Result, error) {
	if g.logger != nil {
		g.logger.Info("capture stub: grab requested", "path", videoPath, "at", atSeconds)
	}
	if atSeconds < 0 {
		atSeconds = 0
	}
	return &Result{Image: []byte{0xff, 0xd8, 0xff, 0xd9}, ActualTime: atSeconds}, nil
}

func (g *StubGrabber) Duration(ctx context.Context, videoPath string) (float64, error) {
	if g.logger != nil {
		g.logger.Info("capture stub: duration requested", "path", videoPath)
	}
	return 0, nil
}
