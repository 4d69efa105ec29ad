package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/unistory/storyboard-agent/internal/capture"
	"github.com/unistory/storyboard-agent/internal/db"
	"github.com/unistory/storyboard-agent/internal/export"
	"github.com/unistory/storyboard-agent/internal/locale"
	"github.com/unistory/storyboard-agent/internal/storyboard"
	"github.com/unistory/storyboard-agent/internal/video"
)

const testToken = "test-token-123456"

type testEnv struct {
	router    http.Handler
	svc       *storyboard.Service
	player    *video.Player
	grabs     *GrabTracker
	exportDir string
	dir       string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	database, err := db.New(filepath.Join(dir, "test.db"), logger)
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	labels := locale.Match("en")
	repo := storyboard.NewRepository(database.Conn(), func() storyboard.Schema {
		return storyboard.DefaultSchema(labels)
	}, logger)

	if err := repo.SetConfig(context.Background(), "auth_token", testToken); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}

	svc := storyboard.NewService(repo, labels, logger)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("service load: %v", err)
	}

	grabber := capture.NewStubGrabber(logger)
	player := video.NewPlayer(grabber, logger)

	cfg := ServerConfig{
		Storyboard: svc,
		Player:     player,
		Grabber:    grabber,
		Repository: repo,
		Exporter:   export.NewXLSXWriter(logger),
		ExportDir:  filepath.Join(dir, "exports"),
		Logger:     logger,
		StartTime:  time.Now(),
		DeviceID:   "test-device",
		Grabs:      NewGrabTracker(),
	}

	return &testEnv{
		router:    NewRouter(cfg),
		svc:       svc,
		player:    player,
		grabs:     cfg.Grabs,
		exportDir: cfg.ExportDir,
		dir:       dir,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) schemaKeys(t *testing.T) []string {
	t.Helper()

	schema := e.svc.Schema()
	keys := make([]string, len(schema))
	for i, def := range schema {
		keys[i] = def.Key
	}
	return keys
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func (e *testEnv) loadVideo(t *testing.T) string {
	t.Helper()

	path := filepath.Join(e.dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("fake video bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	rr := e.do(t, http.MethodPost, "/video", LoadVideoRequest{Path: path})
	if rr.Code != http.StatusOK {
		t.Fatalf("load video: status %d, body %s", rr.Code, rr.Body.String())
	}
	return path
}

func TestHealth_NoAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	body := decodeJSONBody(t, rr)
	if body["status"] != "ok" {
		t.Fatalf("status field = %v", body["status"])
	}
	if body["device_id"] != "test-device" {
		t.Fatalf("device_id = %v", body["device_id"])
	}
}

func TestStatus_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestStatus_EmptyStoryboard(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/status", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	body := decodeJSONBody(t, rr)
	if body["locale"] != "en" {
		t.Fatalf("locale = %v, want en", body["locale"])
	}
	if body["frame_count"] != float64(0) {
		t.Fatalf("frame_count = %v, want 0", body["frame_count"])
	}
	if _, ok := body["video"]; ok {
		t.Fatal("video should be omitted before loading")
	}
}

func TestVideo_LoadAndSeek(t *testing.T) {
	env := newTestEnv(t)
	env.loadVideo(t)

	rr := env.do(t, http.MethodPost, "/video/seek", SeekRequest{Timestamp: "1:02:03"})
	if rr.Code != http.StatusOK {
		t.Fatalf("seek status = %d, body %s", rr.Code, rr.Body.String())
	}
	body := decodeJSONBody(t, rr)
	if body["seconds"] != float64(3723) {
		t.Fatalf("seconds = %v, want 3723", body["seconds"])
	}
}

func TestVideo_SeekWithoutVideo(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/video/seek", SeekRequest{Timestamp: "00:10"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestVideo_SeekBadTimestamp(t *testing.T) {
	env := newTestEnv(t)
	env.loadVideo(t)

	rr := env.do(t, http.MethodPost, "/video/seek", SeekRequest{Timestamp: "later"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestVideo_LoadRejectsNonVideo(t *testing.T) {
	env := newTestEnv(t)

	path := filepath.Join(env.dir, "notes.txt")
	if err := os.WriteFile(path, []byte("text"), 0o644); err != nil {
		t.Fatal(err)
	}
	rr := env.do(t, http.MethodPost, "/video", LoadVideoRequest{Path: path})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func waitForPending(t *testing.T, env *testEnv) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := env.svc.Pending(); ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("capture never staged a pending frame")
}

func TestCapture_StagesPendingFrame(t *testing.T) {
	env := newTestEnv(t)
	env.loadVideo(t)

	rr := env.do(t, http.MethodPost, "/capture", CaptureRequest{Timestamp: "01:15"})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("capture status = %d, body %s", rr.Code, rr.Body.String())
	}
	waitForPending(t, env)

	rr = env.do(t, http.MethodGet, "/pending", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("pending status = %d", rr.Code)
	}
	body := decodeJSONBody(t, rr)
	if body["timestamp"] != "01:15" {
		t.Fatalf("pending timestamp = %v, want 01:15", body["timestamp"])
	}
	if body["lens_number"] != float64(1) {
		t.Fatalf("pending lens_number = %v, want 1", body["lens_number"])
	}
	if body["has_image"] != true {
		t.Fatalf("pending has_image = %v, want true", body["has_image"])
	}
}

func TestCapture_WithoutVideo(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/capture", CaptureRequest{Timestamp: "00:05"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestPending_EmptySlot(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/pending", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}

	rr = env.do(t, http.MethodPatch, "/pending/lens-number", LensNumberRequest{LensNumber: 2})
	if rr.Code != http.StatusConflict {
		t.Fatalf("reassign status = %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestFrames_InsertAndLifecycle(t *testing.T) {
	env := newTestEnv(t)

	// No pending frame staged: insert falls back to a placeholder.
	rr := env.do(t, http.MethodPost, "/frames", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("insert status = %d, body %s", rr.Code, rr.Body.String())
	}
	created := decodeJSONBody(t, rr)
	if created["lens_number"] != float64(1) {
		t.Fatalf("lens_number = %v, want 1", created["lens_number"])
	}
	if created["timestamp"] != "00:00:00" {
		t.Fatalf("timestamp = %v, want 00:00:00", created["timestamp"])
	}
	id := created["id"].(string)

	rr = env.do(t, http.MethodGet, "/frames", nil)
	body := decodeJSONBody(t, rr)
	frames := body["frames"].([]interface{})
	if len(frames) != 1 {
		t.Fatalf("frames = %d, want 1", len(frames))
	}

	shotKey := env.schemaKeys(t)[0]
	rr = env.do(t, http.MethodPatch, "/frames/"+id+"/fields/"+shotKey, FieldValueRequest{Value: "Close Shot"})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("set field status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, http.MethodGet, "/frames/"+id, nil)
	frame := decodeJSONBody(t, rr)
	fields := frame["fields"].([]interface{})
	first := fields[0].(map[string]interface{})
	if first["key"] != shotKey || first["value"] != "Close Shot" {
		t.Fatalf("first field = %v", first)
	}

	rr = env.do(t, http.MethodDelete, "/frames/"+id, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
	rr = env.do(t, http.MethodGet, "/frames/"+id, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want 404", rr.Code)
	}
}

func TestFrames_ReassignValidation(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/frames", nil)
	id := decodeJSONBody(t, rr)["id"].(string)

	rr = env.do(t, http.MethodPatch, "/frames/"+id+"/lens-number", LensNumberRequest{LensNumber: 0})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("zero lens number status = %d, want 400", rr.Code)
	}

	// Requests past the end clamp instead of failing.
	rr = env.do(t, http.MethodPatch, "/frames/"+id+"/lens-number", LensNumberRequest{LensNumber: 99})
	if rr.Code != http.StatusOK {
		t.Fatalf("clamped reassign status = %d", rr.Code)
	}
	if got := decodeJSONBody(t, rr)["lens_number"]; got != float64(1) {
		t.Fatalf("applied lens number = %v, want 1", got)
	}

	rr = env.do(t, http.MethodPatch, "/frames/missing/lens-number", LensNumberRequest{LensNumber: 1})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing frame status = %d, want 404", rr.Code)
	}
}

func TestFrames_ImageEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.loadVideo(t)

	env.do(t, http.MethodPost, "/capture", CaptureRequest{Timestamp: "00:30"})
	waitForPending(t, env)

	rr := env.do(t, http.MethodPost, "/frames", nil)
	id := decodeJSONBody(t, rr)["id"].(string)

	rr = env.do(t, http.MethodGet, "/frames/"+id+"/image", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("image status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Fatalf("content type = %q", ct)
	}
	if rr.Body.Len() == 0 {
		t.Fatal("image body is empty")
	}
}

func TestSchema_Endpoints(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/schema", nil)
	fields := decodeJSONBody(t, rr)["fields"].([]interface{})
	if len(fields) != 3 {
		t.Fatalf("default schema fields = %d, want 3", len(fields))
	}

	rr = env.do(t, http.MethodPost, "/schema/fields", AddFieldRequest{Type: "custom"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("add field status = %d", rr.Code)
	}
	added := decodeJSONBody(t, rr)
	key := added["key"].(string)

	rr = env.do(t, http.MethodPatch, "/schema/fields/"+key, RenameFieldRequest{Title: "Notes"})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("rename status = %d", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/schema", nil)
	fields = decodeJSONBody(t, rr)["fields"].([]interface{})
	last := fields[len(fields)-1].(map[string]interface{})
	if last["title"] != "Notes" {
		t.Fatalf("renamed title = %v, want Notes", last["title"])
	}

	rr = env.do(t, http.MethodDelete, "/schema/fields/"+key, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("remove status = %d", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/schema", nil)
	if got := len(decodeJSONBody(t, rr)["fields"].([]interface{})); got != 3 {
		t.Fatalf("fields after remove = %d, want 3", got)
	}
}

func TestSchema_Reorder(t *testing.T) {
	env := newTestEnv(t)

	keys := env.schemaKeys(t)
	reversed := []string{keys[2], keys[1], keys[0]}

	rr := env.do(t, http.MethodPut, "/schema/order", OrderRequest{Keys: reversed})
	if rr.Code != http.StatusOK {
		t.Fatalf("reorder status = %d, body %s", rr.Code, rr.Body.String())
	}
	fields := decodeJSONBody(t, rr)["fields"].([]interface{})
	first := fields[0].(map[string]interface{})
	if first["key"] != keys[2] {
		t.Fatalf("first field after reorder = %v, want %s", first["key"], keys[2])
	}

	rr = env.do(t, http.MethodPut, "/schema/order", OrderRequest{Keys: keys[:1]})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("partial reorder status = %d, want 400", rr.Code)
	}
}

func TestSchema_Options(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/schema/options", nil)
	body := decodeJSONBody(t, rr)
	shotTypes := body["shot_type"].([]interface{})
	if len(shotTypes) != 5 {
		t.Fatalf("shot type options = %d, want 5", len(shotTypes))
	}
	moves := body["camera_movement"].([]interface{})
	if len(moves) != 8 {
		t.Fatalf("camera movement options = %d, want 8", len(moves))
	}
}

func TestLocale_GetAndSet(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/locale", nil)
	if got := decodeJSONBody(t, rr)["locale"]; got != "en" {
		t.Fatalf("locale = %v, want en", got)
	}

	rr = env.do(t, http.MethodPut, "/locale", LocaleRequest{Locale: "zh-CN"})
	if rr.Code != http.StatusOK {
		t.Fatalf("set locale status = %d", rr.Code)
	}
	if got := decodeJSONBody(t, rr)["locale"]; got != "zh" {
		t.Fatalf("locale = %v, want zh", got)
	}

	// Option lists follow the active locale.
	rr = env.do(t, http.MethodGet, "/schema/options", nil)
	shotTypes := decodeJSONBody(t, rr)["shot_type"].([]interface{})
	if shotTypes[0] != "全景" {
		t.Fatalf("first shot type = %v, want 全景", shotTypes[0])
	}
}

func TestExport_EmptyStoryboard(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/export", ExportRequest{})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnprocessableEntity)
	}
}

func TestExport_WritesWorkbook(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/frames", nil)

	rr := env.do(t, http.MethodPost, "/export", ExportRequest{Filename: "board"})
	if rr.Code != http.StatusOK {
		t.Fatalf("export status = %d, body %s", rr.Code, rr.Body.String())
	}
	body := decodeJSONBody(t, rr)
	if body["row_count"] != float64(1) {
		t.Fatalf("row_count = %v, want 1", body["row_count"])
	}
	outputPath := body["output_path"].(string)
	if _, err := os.Stat(outputPath); err != nil {
		t.Fatalf("workbook missing: %v", err)
	}
	if filepath.Dir(outputPath) != env.exportDir {
		t.Fatalf("workbook outside export dir: %s", outputPath)
	}
}
