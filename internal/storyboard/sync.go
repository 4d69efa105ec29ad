package storyboard

// Synchronize reconciles every frame's field values against the current
// schema: each frame ends up with exactly one FieldValue per schema field,
// in schema order, keeping the value the user already entered for a key and
// blanking fields the frame has never seen. Values whose key left the
// schema are dropped. Frames are mutated in place; the pass is total and
// deterministic.
func Synchronize(schema Schema, frames []*Frame) {
	for _, frame := range frames {
		frame.Fields = projectFields(schema, frame.Fields)
	}
}

func projectFields(schema Schema, existing []FieldValue) []FieldValue {
	byKey := make(map[string]string, len(existing))
	for _, fv := range existing {
		byKey[fv.Key] = fv.Value
	}

	fields := make([]FieldValue, len(schema))
	for i, def := range schema {
		fields[i] = FieldValue{
			ID:    NewID(),
			Title: def.Title,
			Value: byKey[def.Key],
			Key:   def.Key,
			Type:  def.Type,
		}
	}
	return fields
}
