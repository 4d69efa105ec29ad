package storyboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/unistory/storyboard-agent/internal/locale"
	"github.com/unistory/storyboard-agent/internal/timecode"
)

var (
	ErrFrameNotFound = errors.New("frame not found")
	ErrNoPending     = errors.New("no pending frame staged")
)

// Service owns the frame store, the global schema, the pending capture
// slot, and the current selection. Every mutation goes through one mutex,
// and every mutation that touches persisted state saves through the
// repository before returning. A failed save is logged and the in-memory
// state stays authoritative; nothing rolls back.
type Service struct {
	repo   Repository
	logger *slog.Logger

	mu         sync.Mutex
	labels     locale.Labels
	schema     Schema
	frames     []*Frame
	pending    *Frame
	selectedID string
}

func NewService(repo Repository, labels locale.Labels, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		labels: labels,
		schema: Schema{},
		frames: []*Frame{},
	}
}

// Load pulls the persisted schema and frames, then synchronizes the frames
// so a schema saved by a newer run than its frames cannot leave the store
// inconsistent. The first frame becomes the selection, as in a fresh app
// launch.
func (s *Service) Load(ctx context.Context) error {
	schema, err := s.repo.LoadSchema(ctx)
	if err != nil {
		return err
	}
	frames, err := s.repo.LoadFrames(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.schema = schema
	s.frames = frames
	Synchronize(s.schema, s.frames)
	if len(s.frames) > 0 {
		s.selectedID = s.frames[0].ID
	}

	if s.logger != nil {
		s.logger.Info("storyboard loaded", "frames", len(s.frames), "fields", len(s.schema))
	}
	return nil
}

func (s *Service) Labels() locale.Labels {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.labels
}

func (s *Service) SetLabels(labels locale.Labels) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels = labels
}

// Schema returns a copy of the current schema in order.
func (s *Service) Schema() Schema {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema.Clone()
}

// Frames returns copies of the frames in store order.
func (s *Service) Frames() []*Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneFrames(s.frames)
}

func (s *Service) Frame(id string) (*Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f := s.findFrame(id); f != nil {
		return f.Clone(), true
	}
	return nil, false
}

func (s *Service) FrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// Snapshot returns matching copies of the frames and schema, for export.
func (s *Service) Snapshot() ([]*Frame, Schema) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneFrames(s.frames), s.schema.Clone()
}

// StagePending stores a capture result in the pending slot, replacing
// whatever was there: the last capture to arrive wins. The staged frame
// gets the next free lens number and a field set projected from the
// current schema. Nothing is persisted until the frame is inserted.
func (s *Service) StagePending(image []byte, atSeconds float64) *Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := &Frame{
		ID:         NewID(),
		Image:      image,
		LensNumber: NextLensNumber(s.frames),
		Timestamp:  timecode.Format(atSeconds),
		Fields:     projectFields(s.schema, nil),
	}
	s.pending = frame

	if s.logger != nil {
		s.logger.Info("capture staged", "frame_id", frame.ID, "timestamp", frame.Timestamp, "lens_number", frame.LensNumber)
	}
	return frame.Clone()
}

func (s *Service) Pending() (*Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil, false
	}
	return s.pending.Clone(), true
}

// ReassignPending renumbers the staged frame, shifting committed frames up
// where the requested number collides with an occupied one. Returns the
// number actually applied after clamping to [1, N+1].
func (s *Service) ReassignPending(ctx context.Context, requested int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return 0, ErrNoPending
	}

	applied, err := Reassign(s.frames, s.pending, requested)
	if err != nil {
		return 0, err
	}
	s.saveFrames(ctx)
	return applied, nil
}

// InsertPending commits the staged frame to the store and clears the slot.
// With nothing staged it inserts a placeholder frame at the next lens
// number instead, mirroring the original insert button's fallback. The
// inserted frame becomes the selection.
func (s *Service) InsertPending(ctx context.Context) *Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := s.pending
	if frame == nil {
		frame = &Frame{
			ID:         NewID(),
			LensNumber: NextLensNumber(s.frames),
			Timestamp:  "00:00:00",
			Fields:     projectFields(s.schema, nil),
		}
	}

	s.frames = append(s.frames, frame)
	s.pending = nil
	s.selectedID = frame.ID
	s.saveFrames(ctx)

	if s.logger != nil {
		s.logger.Info("frame inserted", "frame_id", frame.ID, "lens_number", frame.LensNumber, "frames", len(s.frames))
	}
	return frame.Clone()
}

// ReassignFrame renumbers a committed frame. Its old number is vacated and
// the requested one claimed, so the store's numbers stay dense.
func (s *Service) ReassignFrame(ctx context.Context, id string, requested int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := s.findFrame(id)
	if frame == nil {
		return 0, ErrFrameNotFound
	}

	applied, err := Reassign(s.frames, frame, requested)
	if err != nil {
		return 0, err
	}
	s.saveFrames(ctx)
	return applied, nil
}

// SetFieldValue updates one annotation value on a committed frame and
// saves immediately (save-on-change).
func (s *Service) SetFieldValue(ctx context.Context, frameID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := s.findFrame(frameID)
	if frame == nil {
		return ErrFrameNotFound
	}

	for i := range frame.Fields {
		if frame.Fields[i].Key == key {
			frame.Fields[i].Value = value
			s.saveFrames(ctx)
			return nil
		}
	}
	return ErrFieldNotFound
}

// DeleteFrame removes a frame and closes the lens-number gap it leaves. A
// staged frame numbered past the new tail is pulled down so a later insert
// keeps the sequence dense. A deleted selection is cleared.
func (s *Service) DeleteFrame(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, f := range s.frames {
		if f.ID == id {
			removed := f.LensNumber
			s.frames = append(s.frames[:i], s.frames[i+1:]...)
			compactAfterRemoval(s.frames, removed)
			if next := NextLensNumber(s.frames); s.pending != nil && s.pending.LensNumber > next {
				s.pending.LensNumber = next
			}
			if s.selectedID == id {
				s.selectedID = ""
			}
			s.saveFrames(ctx)

			if s.logger != nil {
				s.logger.Info("frame deleted", "frame_id", id, "frames", len(s.frames))
			}
			return nil
		}
	}
	return ErrFrameNotFound
}

// Select marks a frame as the current selection.
func (s *Service) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findFrame(id) == nil {
		return ErrFrameNotFound
	}
	s.selectedID = id
	return nil
}

func (s *Service) Selected() (*Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f := s.findFrame(s.selectedID); f != nil {
		return f.Clone(), true
	}
	return nil, false
}

// AddField appends a schema field of the given type and synchronizes every
// frame against the new schema.
func (s *Service) AddField(ctx context.Context, fieldType string) FieldDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()

	def := s.schema.AddField(fieldType, s.labels)
	s.syncAndSave(ctx)

	if s.logger != nil {
		s.logger.Info("field added", "key", def.Key, "type", def.Type)
	}
	return def
}

// RemoveField drops a schema field; every frame loses its value for that
// key. Removing an unknown key is a no-op.
func (s *Service) RemoveField(ctx context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.schema)
	s.schema.RemoveField(key)
	if len(s.schema) == before {
		return
	}
	s.syncAndSave(ctx)
}

// RenameField retitles a schema field; frames pick up the new title on the
// synchronize pass that follows.
func (s *Service) RenameField(ctx context.Context, key, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.schema.RenameField(key, title); err != nil {
		return err
	}
	s.syncAndSave(ctx)
	return nil
}

// ReorderSchema applies a new field order, which must be a permutation of
// the current keys.
func (s *Service) ReorderSchema(ctx context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.schema.Reorder(keys); err != nil {
		return err
	}
	s.syncAndSave(ctx)
	return nil
}

// syncAndSave runs the synchronizer over the store (and the pending slot,
// which is a schema projection too) and persists both collections.
// Callers hold the mutex.
func (s *Service) syncAndSave(ctx context.Context) {
	Synchronize(s.schema, s.frames)
	if s.pending != nil {
		Synchronize(s.schema, []*Frame{s.pending})
	}
	s.saveSchema(ctx)
	s.saveFrames(ctx)
}

func (s *Service) saveFrames(ctx context.Context) {
	if err := s.repo.SaveFrames(ctx, s.frames); err != nil && s.logger != nil {
		s.logger.Warn("frame save failed, keeping in-memory state", "error", err)
	}
}

func (s *Service) saveSchema(ctx context.Context) {
	if err := s.repo.SaveSchema(ctx, s.schema); err != nil && s.logger != nil {
		s.logger.Warn("schema save failed, keeping in-memory state", "error", err)
	}
}

func (s *Service) findFrame(id string) *Frame {
	if id == "" {
		return nil
	}
	for _, f := range s.frames {
		if f.ID == id {
			return f
		}
	}
	return nil
}

func cloneFrames(frames []*Frame) []*Frame {
	out := make([]*Frame, len(frames))
	for i, f := range frames {
		out[i] = f.Clone()
	}
	return out
}
