// Package ui is the agent's system tray presence: a live summary of the
// loaded video and frame count, plus export and quit actions.
package ui

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"
)

type Tray struct {
	logger *slog.Logger

	videoItem  *systray.MenuItem
	framesItem *systray.MenuItem

	mu sync.Mutex

	onExport func() error
	onQuit   func()
}

type TrayConfig struct {
	Logger   *slog.Logger
	OnExport func() error
	OnQuit   func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		logger:   cfg.Logger,
		onExport: cfg.OnExport,
		onQuit:   cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetTitle("UniStory")
	systray.SetTooltip("UniStory Storyboard Agent")

	t.videoItem = systray.AddMenuItem("Video: none", "Currently loaded video")
	t.videoItem.Disable()

	t.framesItem = systray.AddMenuItem("Frames: 0", "Frames in the storyboard")
	t.framesItem.Disable()

	systray.AddSeparator()

	exportItem := systray.AddMenuItem("Export Storyboard...", "Write the storyboard to an xlsx workbook")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit the storyboard agent")

	go func() {
		for {
			select {
			case <-exportItem.ClickedCh:
				t.handleExport()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) handleExport() {
	if t.onExport == nil {
		return
	}
	if err := t.onExport(); err != nil {
		t.logger.Error("tray export failed", "error", err)
	}
}

func (t *Tray) UpdateVideo(filename string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if filename == "" {
		filename = "none"
	}
	t.videoItem.SetTitle("Video: " + filename)
}

func (t *Tray) UpdateFrameCount(count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.framesItem.SetTitle(fmt.Sprintf("Frames: %d", count))
}

func (t *Tray) Quit() {
	systray.Quit()
}
