// Package storyboard holds the storyboard data model: the global field
// schema shared by every frame, the ordered frame store with its dense
// lens-number sequence, and the service that applies UI commands to both.
package storyboard

import (
	"github.com/google/uuid"

	"github.com/unistory/storyboard-agent/internal/locale"
)

// Field types. The type selects the UI affordance (free text vs. a
// predefined option list), not the stored value format.
const (
	FieldTypeCustom         = "custom"
	FieldTypeShotType       = "shotType"
	FieldTypeCameraMovement = "cameraMovement"
)

// FieldDefinition is one column of the global schema. Key is generated once
// and never reused; Title is the mutable display label. Value is unused at
// the schema level and kept as an empty placeholder for record
// compatibility.
type FieldDefinition struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Value string `json:"value"`
	Key   string `json:"key"`
	Type  string `json:"type"`
}

// FieldValue is a frame's denormalized copy of a schema field. It carries
// the title and type as of the last synchronize pass, plus the value the
// user entered.
type FieldValue struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Value string `json:"value"`
	Key   string `json:"key"`
	Type  string `json:"type"`
}

// Frame is one storyboard entry: a captured still, its display timestamp,
// its lens number, and one FieldValue per schema field.
type Frame struct {
	ID         string       `json:"id"`
	Image      []byte       `json:"image"`
	LensNumber int          `json:"lensNumber"`
	Timestamp  string       `json:"timestamp"`
	Fields     []FieldValue `json:"fields"`
}

// Clone returns a deep copy of the frame. Handlers hand copies to callers
// so nothing outside the service mutates the store.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	c := *f
	c.Image = append([]byte(nil), f.Image...)
	c.Fields = append([]FieldValue(nil), f.Fields...)
	return &c
}

func NewID() string {
	return uuid.NewString()
}

// DefaultSchema is the schema a fresh install starts with: one shot-type
// field, one camera-movement field, one free-text field, titled for the
// given locale.
func DefaultSchema(labels locale.Labels) Schema {
	return Schema{
		{ID: NewID(), Title: labels.ShotType, Key: NewID(), Type: FieldTypeShotType},
		{ID: NewID(), Title: labels.CameraMovement, Key: NewID(), Type: FieldTypeCameraMovement},
		{ID: NewID(), Title: labels.Custom, Key: NewID(), Type: FieldTypeCustom},
	}
}
