package storyboard

import (
	"errors"

	"github.com/unistory/storyboard-agent/internal/locale"
)

var (
	ErrFieldNotFound = errors.New("field not found")
	ErrBadOrder      = errors.New("order is not a permutation of the schema keys")
)

// Schema is the ordered set of field definitions shared by every frame.
// Order is significant: it drives field display order and export column
// order. Mutations here touch only the schema; callers run Synchronize
// over the frame store before treating the new schema as live.
type Schema []FieldDefinition

// AddField appends a definition of the given type with a fresh key and a
// type-appropriate default title. Unknown types are treated as custom.
func (s *Schema) AddField(fieldType string, labels locale.Labels) FieldDefinition {
	var title string
	switch fieldType {
	case FieldTypeShotType:
		title = labels.ShotType
	case FieldTypeCameraMovement:
		title = labels.CameraMovement
	default:
		fieldType = FieldTypeCustom
		title = labels.Custom
	}

	def := FieldDefinition{
		ID:    NewID(),
		Title: title,
		Key:   NewID(),
		Type:  fieldType,
	}
	*s = append(*s, def)
	return def
}

// RemoveField deletes the definition with the given key. Removing an
// absent key is a no-op.
func (s *Schema) RemoveField(key string) {
	for i, def := range *s {
		if def.Key == key {
			*s = append((*s)[:i], (*s)[i+1:]...)
			return
		}
	}
}

// RenameField updates the display title of the definition with the given
// key.
func (s *Schema) RenameField(key, title string) error {
	for i := range *s {
		if (*s)[i].Key == key {
			(*s)[i].Title = title
			return nil
		}
	}
	return ErrFieldNotFound
}

// Reorder rearranges the schema to match keys, which must be a permutation
// of the current key set. Anything else is rejected and the schema is left
// untouched.
func (s *Schema) Reorder(keys []string) error {
	if len(keys) != len(*s) {
		return ErrBadOrder
	}

	byKey := make(map[string]FieldDefinition, len(*s))
	for _, def := range *s {
		byKey[def.Key] = def
	}

	next := make(Schema, 0, len(keys))
	for _, key := range keys {
		def, ok := byKey[key]
		if !ok {
			return ErrBadOrder
		}
		delete(byKey, key) // catches duplicate keys in the request
		next = append(next, def)
	}

	*s = next
	return nil
}

// Keys returns the schema's keys in order.
func (s Schema) Keys() []string {
	keys := make([]string, len(s))
	for i, def := range s {
		keys[i] = def.Key
	}
	return keys
}

// Clone returns an independent copy of the schema.
func (s Schema) Clone() Schema {
	return append(Schema(nil), s...)
}
