package api

import (
	"github.com/unistory/storyboard-agent/internal/storyboard"
	"github.com/unistory/storyboard-agent/internal/video"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	Locale     string                 `json:"locale"`
	FrameCount int                    `json:"frame_count"`
	HasPending bool                   `json:"has_pending"`
	Video      *VideoResponse         `json:"video,omitempty"`
	Capture    *CaptureStatusResponse `json:"capture,omitempty"`
}

type CaptureStatusResponse struct {
	Available     bool   `json:"available"`
	FFmpegVersion string `json:"ffmpeg_version,omitempty"`
	LastProbeAt   string `json:"last_probe_at,omitempty"`
}

type LoadVideoRequest struct {
	Path string `json:"path"`
}

type VideoResponse struct {
	Path      string  `json:"path"`
	Filename  string  `json:"filename"`
	Size      int64   `json:"size"`
	DurationS float64 `json:"duration_s"`
}

type SeekRequest struct {
	Timestamp string `json:"timestamp"`
}

type SeekResponse struct {
	Seconds float64 `json:"seconds"`
}

type CaptureRequest struct {
	Timestamp string `json:"timestamp"`
}

type CaptureResponse struct {
	Status  string  `json:"status"`
	Seconds float64 `json:"seconds"`
}

type LensNumberRequest struct {
	LensNumber int `json:"lens_number"`
}

type LensNumberResponse struct {
	LensNumber int `json:"lens_number"`
}

type FieldValueRequest struct {
	Value string `json:"value"`
}

type FieldValueResponse struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

type FrameResponse struct {
	ID         string               `json:"id"`
	LensNumber int                  `json:"lens_number"`
	Timestamp  string               `json:"timestamp"`
	HasImage   bool                 `json:"has_image"`
	Fields     []FieldValueResponse `json:"fields"`
}

type FramesResponse struct {
	Frames []FrameResponse `json:"frames"`
}

type AddFieldRequest struct {
	Type string `json:"type"`
}

type RenameFieldRequest struct {
	Title string `json:"title"`
}

type OrderRequest struct {
	Keys []string `json:"keys"`
}

type FieldDefinitionResponse struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

type SchemaResponse struct {
	Fields []FieldDefinitionResponse `json:"fields"`
}

type OptionsResponse struct {
	ShotType       []string `json:"shot_type"`
	CameraMovement []string `json:"camera_movement"`
}

type LocaleRequest struct {
	Locale string `json:"locale"`
}

type LocaleResponse struct {
	Locale    string   `json:"locale"`
	Supported []string `json:"supported"`
}

type ExportRequest struct {
	OutputDir string `json:"output_dir,omitempty"`
	Filename  string `json:"filename,omitempty"`
}

type ExportResponse struct {
	Status     string `json:"status"`
	OutputPath string `json:"output_path"`
	RowCount   int    `json:"row_count"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// FrameToResponse converts a frame to its wire form. Screenshot bytes
// stay out of the JSON; clients fetch them from the image endpoint.
func FrameToResponse(f *storyboard.Frame) FrameResponse {
	fields := make([]FieldValueResponse, len(f.Fields))
	for i, fv := range f.Fields {
		fields[i] = FieldValueResponse{
			Key:   fv.Key,
			Title: fv.Title,
			Value: fv.Value,
			Type:  fv.Type,
		}
	}
	return FrameResponse{
		ID:         f.ID,
		LensNumber: f.LensNumber,
		Timestamp:  f.Timestamp,
		HasImage:   len(f.Image) > 0,
		Fields:     fields,
	}
}

func SchemaToResponse(s storyboard.Schema) SchemaResponse {
	fields := make([]FieldDefinitionResponse, len(s))
	for i, def := range s {
		fields[i] = FieldDefinitionResponse{
			Key:   def.Key,
			Title: def.Title,
			Type:  def.Type,
		}
	}
	return SchemaResponse{Fields: fields}
}

func VideoToResponse(info *video.Info) *VideoResponse {
	return &VideoResponse{
		Path:      info.Path,
		Filename:  info.Filename,
		Size:      info.Size,
		DurationS: info.Duration,
	}
}
