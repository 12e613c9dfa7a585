package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"clipshift/internal/config"
)

// Store manages queue persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the queue database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.QueueDatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

const itemColumns = "id, source_url, position, status, metadata_json, transform_json, transport_json, destinations_json, results_json, badges_json, source_file, transformed_file, content_hash, duration_seconds, width, height, download_percent, transform_percent, upload_percent, progress_message, error_message, created_at, updated_at, last_heartbeat"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id               int64
		sourceURL        string
		position         int64
		statusStr        string
		metadataJSON     sql.NullString
		transformJSON    sql.NullString
		transportJSON    sql.NullString
		destinationsJSON sql.NullString
		resultsJSON      sql.NullString
		badgesJSON       sql.NullString
		sourceFile       sql.NullString
		transformedFile  sql.NullString
		contentHash      sql.NullString
		durationSeconds  sql.NullFloat64
		width            sql.NullInt64
		height           sql.NullInt64
		downloadPercent  sql.NullFloat64
		transformPercent sql.NullFloat64
		uploadPercent    sql.NullFloat64
		progressMessage  sql.NullString
		errorMessage     sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		lastHeartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourceURL,
		&position,
		&statusStr,
		&metadataJSON,
		&transformJSON,
		&transportJSON,
		&destinationsJSON,
		&resultsJSON,
		&badgesJSON,
		&sourceFile,
		&transformedFile,
		&contentHash,
		&durationSeconds,
		&width,
		&height,
		&downloadPercent,
		&transformPercent,
		&uploadPercent,
		&progressMessage,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:               id,
		SourceURL:        sourceURL,
		Position:         position,
		Status:           Status(statusStr),
		SourceFile:       sourceFile.String,
		TransformedFile:  transformedFile.String,
		ContentHash:      contentHash.String,
		DurationSeconds:  durationSeconds.Float64,
		Width:            int(width.Int64),
		Height:           int(height.Int64),
		DownloadPercent:  downloadPercent.Float64,
		TransformPercent: transformPercent.Float64,
		UploadPercent:    uploadPercent.Float64,
		ProgressMessage:  progressMessage.String,
		ErrorMessage:     errorMessage.String,
	}

	decodeJSON(metadataJSON.String, &item.Metadata)
	decodeJSON(transformJSON.String, &item.Transform)
	decodeJSON(transportJSON.String, &item.Transport)
	decodeJSON(destinationsJSON.String, &item.Destinations)
	decodeJSON(resultsJSON.String, &item.Results)
	decodeJSON(badgesJSON.String, &item.Badges)

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			item.LastHeartbeat = &heartbeat
		}
	}
	return item, nil
}

func decodeJSON(value string, target any) {
	if value == "" {
		return
	}
	_ = json.Unmarshal([]byte(value), target)
}

func encodeJSON(value any) any {
	data, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	text := string(data)
	switch text {
	case "null", "{}", "[]":
		return nil
	}
	return text
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
