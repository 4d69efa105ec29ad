package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/unistory/storyboard-agent/internal/config"
	"github.com/unistory/storyboard-agent/internal/locale"
	"github.com/unistory/storyboard-agent/internal/storyboard"
	"github.com/unistory/storyboard-agent/internal/timecode"
	"github.com/unistory/storyboard-agent/internal/video"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))

		r.Post("/video", loadVideoHandler(cfg))
		r.Get("/video", streamVideoHandler(cfg))
		r.Post("/video/seek", seekHandler(cfg))

		r.Post("/capture", captureHandler(cfg))
		r.Get("/pending", getPendingHandler(cfg))
		r.Patch("/pending/lens-number", reassignPendingHandler(cfg))

		r.Post("/frames", insertFrameHandler(cfg))
		r.Get("/frames", listFramesHandler(cfg))
		r.Get("/frames/{id}", getFrameHandler(cfg))
		r.Get("/frames/{id}/image", frameImageHandler(cfg))
		r.Patch("/frames/{id}/fields/{key}", setFieldValueHandler(cfg))
		r.Patch("/frames/{id}/lens-number", reassignFrameHandler(cfg))
		r.Delete("/frames/{id}", deleteFrameHandler(cfg))

		r.Get("/schema", getSchemaHandler(cfg))
		r.Post("/schema/fields", addFieldHandler(cfg))
		r.Patch("/schema/fields/{key}", renameFieldHandler(cfg))
		r.Delete("/schema/fields/{key}", removeFieldHandler(cfg))
		r.Put("/schema/order", reorderSchemaHandler(cfg))
		r.Get("/schema/options", schemaOptionsHandler(cfg))

		r.Post("/export", exportHandler(cfg))

		r.Get("/locale", getLocaleHandler(cfg))
		r.Put("/locale", setLocaleHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  config.Version,
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, hasPending := cfg.Storyboard.Pending()

		resp := StatusResponse{
			Locale:     cfg.Storyboard.Labels().Tag.String(),
			FrameCount: cfg.Storyboard.FrameCount(),
			HasPending: hasPending,
		}

		if info, ok := cfg.Player.Info(); ok {
			resp.Video = VideoToResponse(info)
		}

		if cfg.Doctor != nil {
			caps := cfg.Doctor.Get(r.Context())
			resp.Capture = &CaptureStatusResponse{
				Available:     caps.CanCapture(),
				FFmpegVersion: caps.FFmpegVersion,
				LastProbeAt:   caps.ProbedAt.Format(time.RFC3339),
			}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func loadVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoadVideoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}

		info, err := cfg.Player.Load(r.Context(), req.Path)
		if err != nil {
			if errors.Is(err, video.ErrNotVideoFile) {
				WriteError(w, http.StatusBadRequest, err.Error(), "NOT_VIDEO")
				return
			}
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusOK, VideoToResponse(info))
	}
}

func streamVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Player.ServeHTTP(w, r)
	}
}

func seekHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SeekRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		seconds, err := cfg.Player.SeekTarget(req.Timestamp)
		if err != nil {
			writeSeekError(w, err)
			return
		}

		WriteJSON(w, http.StatusOK, SeekResponse{Seconds: seconds})
	}
}

// captureHandler validates the request synchronously, then grabs the
// frame in the background. The staged result lands in the pending slot;
// a failed grab leaves whatever was staged before untouched.
func captureHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CaptureRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		seconds, err := cfg.Player.SeekTarget(req.Timestamp)
		if err != nil {
			writeSeekError(w, err)
			return
		}

		if cfg.Doctor != nil && !cfg.Doctor.Get(r.Context()).CanCapture() {
			WriteError(w, http.StatusServiceUnavailable, "ffmpeg is not available", "CAPTURE_UNAVAILABLE")
			return
		}

		path, err := cfg.Player.Path()
		if err != nil {
			WriteError(w, http.StatusConflict, "no video loaded", "NO_VIDEO")
			return
		}

		cfg.Grabs.Go(func(base context.Context) {
			ctx, cancel := context.WithTimeout(base, 60*time.Second)
			defer cancel()

			result, err := cfg.Grabber.Grab(ctx, path, seconds)
			if err != nil {
				cfg.Logger.Warn("capture failed", "seconds", seconds, "error", err)
				return
			}
			cfg.Storyboard.StagePending(result.Image, result.ActualTime)
		})

		WriteJSON(w, http.StatusAccepted, CaptureResponse{Status: "accepted", Seconds: seconds})
	}
}

func getPendingHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		frame, ok := cfg.Storyboard.Pending()
		if !ok {
			WriteError(w, http.StatusNotFound, "no pending frame", "NO_PENDING")
			return
		}
		WriteJSON(w, http.StatusOK, FrameToResponse(frame))
	}
}

func reassignPendingHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LensNumberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		applied, err := cfg.Storyboard.ReassignPending(r.Context(), req.LensNumber)
		if err != nil {
			writeReassignError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, LensNumberResponse{LensNumber: applied})
	}
}

func insertFrameHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		frame := cfg.Storyboard.InsertPending(r.Context())
		WriteJSON(w, http.StatusCreated, FrameToResponse(frame))
	}
}

func listFramesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		frames := cfg.Storyboard.Frames()
		resp := FramesResponse{Frames: make([]FrameResponse, len(frames))}
		for i, f := range frames {
			resp.Frames[i] = FrameToResponse(f)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getFrameHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		frame, ok := cfg.Storyboard.Frame(chi.URLParam(r, "id"))
		if !ok {
			WriteError(w, http.StatusNotFound, "frame not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, FrameToResponse(frame))
	}
}

func frameImageHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		frame, ok := cfg.Storyboard.Frame(chi.URLParam(r, "id"))
		if !ok {
			WriteError(w, http.StatusNotFound, "frame not found", "NOT_FOUND")
			return
		}
		if len(frame.Image) == 0 {
			WriteError(w, http.StatusNotFound, "frame has no screenshot", "NO_IMAGE")
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(frame.Image)
	}
}

func setFieldValueHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FieldValueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		id := chi.URLParam(r, "id")
		key := chi.URLParam(r, "key")
		if err := cfg.Storyboard.SetFieldValue(r.Context(), id, key, req.Value); err != nil {
			if errors.Is(err, storyboard.ErrFrameNotFound) {
				WriteError(w, http.StatusNotFound, "frame not found", "NOT_FOUND")
				return
			}
			if errors.Is(err, storyboard.ErrFieldNotFound) {
				WriteError(w, http.StatusNotFound, "field not found", "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func reassignFrameHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LensNumberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		applied, err := cfg.Storyboard.ReassignFrame(r.Context(), chi.URLParam(r, "id"), req.LensNumber)
		if err != nil {
			writeReassignError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, LensNumberResponse{LensNumber: applied})
	}
}

func deleteFrameHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Storyboard.DeleteFrame(r.Context(), chi.URLParam(r, "id")); err != nil {
			WriteError(w, http.StatusNotFound, "frame not found", "NOT_FOUND")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func getSchemaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, SchemaToResponse(cfg.Storyboard.Schema()))
	}
}

func addFieldHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddFieldRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		def := cfg.Storyboard.AddField(r.Context(), req.Type)
		WriteJSON(w, http.StatusCreated, FieldDefinitionResponse{
			Key:   def.Key,
			Title: def.Title,
			Type:  def.Type,
		})
	}
}

func renameFieldHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RenameFieldRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Title == "" {
			WriteError(w, http.StatusBadRequest, "title is required", "BAD_REQUEST")
			return
		}

		if err := cfg.Storyboard.RenameField(r.Context(), chi.URLParam(r, "key"), req.Title); err != nil {
			WriteError(w, http.StatusNotFound, "field not found", "NOT_FOUND")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func removeFieldHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Storyboard.RemoveField(r.Context(), chi.URLParam(r, "key"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func reorderSchemaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := cfg.Storyboard.ReorderSchema(r.Context(), req.Keys); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_ORDER")
			return
		}
		WriteJSON(w, http.StatusOK, SchemaToResponse(cfg.Storyboard.Schema()))
	}
}

func schemaOptionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		labels := cfg.Storyboard.Labels()
		WriteJSON(w, http.StatusOK, OptionsResponse{
			ShotType:       labels.ShotTypeOptions,
			CameraMovement: labels.CameraMovementOptions,
		})
	}
}

func getLocaleHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, LocaleResponse{
			Locale:    cfg.Storyboard.Labels().Tag.String(),
			Supported: locale.Supported(),
		})
	}
}

func setLocaleHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LocaleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Locale == "" {
			WriteError(w, http.StatusBadRequest, "locale is required", "BAD_REQUEST")
			return
		}

		labels := locale.Match(req.Locale)
		cfg.Storyboard.SetLabels(labels)
		if err := cfg.Repository.SetConfig(r.Context(), "locale", labels.Tag.String()); err != nil {
			cfg.Logger.Warn("locale not persisted", "error", err)
		}

		WriteJSON(w, http.StatusOK, LocaleResponse{
			Locale:    labels.Tag.String(),
			Supported: locale.Supported(),
		})
	}
}

func writeSeekError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, video.ErrNoVideo):
		WriteError(w, http.StatusConflict, "no video loaded", "NO_VIDEO")
	case errors.Is(err, timecode.ErrInvalidFormat):
		WriteError(w, http.StatusBadRequest, "invalid timestamp", "BAD_TIMESTAMP")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}

func writeReassignError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storyboard.ErrInvalidLensNumber):
		WriteError(w, http.StatusBadRequest, "lens number must be positive", "BAD_LENS_NUMBER")
	case errors.Is(err, storyboard.ErrNoPending):
		WriteError(w, http.StatusConflict, "no pending frame", "NO_PENDING")
	case errors.Is(err, storyboard.ErrFrameNotFound):
		WriteError(w, http.StatusNotFound, "frame not found", "NOT_FOUND")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}
