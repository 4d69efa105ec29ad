package video

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"
)

// ServeHTTP streams the loaded video, honoring Range requests so the
// player can scrub. Serving without a loaded video is a 404.
func (p *Player) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path, err := p.Path()
	if err != nil {
		http.Error(w, "no video loaded", http.StatusNotFound)
		return
	}

	file, err := os.Open(path)
	if err != nil {
		if p.logger != nil {
			p.logger.Error("video open failed", "path", path, "error", err)
		}
		http.Error(w, "video not available", http.StatusNotFound)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		http.Error(w, "video not available", http.StatusInternalServerError)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)

	// ServeContent negotiates Range/If-Range and 206 responses.
	http.ServeContent(w, r, filepath.Base(path), stat.ModTime(), file)
}
