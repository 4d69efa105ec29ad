package storyboard

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"
)

// Record keys. One durable record per logical collection; a save replaces
// the whole record.
const (
	recordFrames = "screenList"
	recordSchema = "globalFields"
)

type Repository interface {
	SaveFrames(ctx context.Context, frames []*Frame) error
	LoadFrames(ctx context.Context) ([]*Frame, error)
	SaveSchema(ctx context.Context, schema Schema) error
	LoadSchema(ctx context.Context) (Schema, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

// SQLiteRepository persists each collection as a single JSON document in
// the records table. A write is one upsert statement, so a failed save
// leaves the previous record intact and readable.
type SQLiteRepository struct {
	db       *sql.DB
	defaults func() Schema
	logger   *slog.Logger
}

// NewRepository wires a repository over an open database. defaults
// produces the schema handed out when no schema record exists yet (or the
// stored one is unreadable); it is invoked per load so keys are fresh.
func NewRepository(db *sql.DB, defaults func() Schema, logger *slog.Logger) *SQLiteRepository {
	return &SQLiteRepository{db: db, defaults: defaults, logger: logger}
}

func (r *SQLiteRepository) SaveFrames(ctx context.Context, frames []*Frame) error {
	if frames == nil {
		frames = []*Frame{}
	}
	return r.saveRecord(ctx, recordFrames, frames)
}

func (r *SQLiteRepository) LoadFrames(ctx context.Context) ([]*Frame, error) {
	data, err := r.loadRecord(ctx, recordFrames)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return []*Frame{}, nil
	}

	var frames []*Frame
	if err := json.Unmarshal(data, &frames); err != nil {
		if r.logger != nil {
			r.logger.Warn("frame record unreadable, starting empty", "error", err)
		}
		return []*Frame{}, nil
	}
	return frames, nil
}

func (r *SQLiteRepository) SaveSchema(ctx context.Context, schema Schema) error {
	if schema == nil {
		schema = Schema{}
	}
	return r.saveRecord(ctx, recordSchema, schema)
}

func (r *SQLiteRepository) LoadSchema(ctx context.Context) (Schema, error) {
	data, err := r.loadRecord(ctx, recordSchema)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return r.defaults(), nil
	}

	var schema Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		if r.logger != nil {
			r.logger.Warn("schema record unreadable, using defaults", "error", err)
		}
		return r.defaults(), nil
	}
	if len(schema) == 0 {
		return r.defaults(), nil
	}
	return schema, nil
}

func (r *SQLiteRepository) saveRecord(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO records (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(data), time.Now().UTC().Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) loadRecord(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM records WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
