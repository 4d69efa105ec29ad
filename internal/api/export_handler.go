package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/unistory/storyboard-agent/internal/export"
)

// exportHandler snapshots the storyboard and writes it to an .xlsx
// workbook. An omitted output_dir falls back to the agent's export
// directory, which is created on demand.
func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		outputDir := req.OutputDir
		if outputDir == "" {
			outputDir = cfg.ExportDir
			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				WriteError(w, http.StatusInternalServerError, "failed to create export directory", "INTERNAL_ERROR")
				return
			}
		} else if err := export.ValidateOutputDir(outputDir); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		frames, schema := cfg.Storyboard.Snapshot()
		if len(frames) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "storyboard is empty", "EMPTY_STORYBOARD")
			return
		}

		table := export.Project(frames, schema, cfg.Storyboard.Labels())
		outputPath, err := cfg.Exporter.Write(r.Context(), table, outputDir, req.Filename)
		if err != nil {
			cfg.Logger.Error("export failed", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to write workbook", "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, ExportResponse{
			Status:     "ok",
			OutputPath: outputPath,
			RowCount:   len(table.Rows),
		})
	}
}
