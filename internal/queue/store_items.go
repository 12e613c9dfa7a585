package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"clipshift/internal/services"
)

// NewItemParams describes an enqueue request.
type NewItemParams struct {
	SourceURL    string
	Metadata     Metadata
	Transform    TransformOptions
	Transport    TransportOptions
	Destinations []string
}

// NewItem validates and appends a new job item to the end of the queue.
func (s *Store) NewItem(ctx context.Context, params NewItemParams) (*Item, error) {
	params.SourceURL = strings.TrimSpace(params.SourceURL)
	if params.SourceURL == "" {
		return nil, services.Wrap(services.ErrValidation, "queue", "enqueue", "source URL is empty", nil)
	}
	if !strings.Contains(params.SourceURL, "://") {
		return nil, services.Wrap(services.ErrValidation, "queue", "enqueue", fmt.Sprintf("source URL %q has no scheme", params.SourceURL), nil)
	}
	params.Metadata.Tags = NormalizeTags(params.Metadata.Tags)
	if len(params.Destinations) == 0 {
		params.Destinations = []string{"youtube"}
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin enqueue tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var maxPosition sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(position) FROM queue_items`).Scan(&maxPosition); err != nil {
		return nil, fmt.Errorf("max position: %w", err)
	}

	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO queue_items (
            source_url, position, status, metadata_json, transform_json,
            transport_json, destinations_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		params.SourceURL,
		maxPosition.Int64+1,
		StatusPending,
		encodeJSON(params.Metadata),
		encodeJSON(params.Transform),
		encodeJSON(params.Transport),
		encodeJSON(params.Destinations),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit enqueue: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// FindBySourceURL returns the first item matching a source URL.
func (s *Store) FindBySourceURL(ctx context.Context, url string) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE source_url = ? ORDER BY id LIMIT 1`,
		strings.TrimSpace(url),
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by source url: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing queue item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_items
         SET source_url = ?, position = ?, status = ?, metadata_json = ?,
             transform_json = ?, transport_json = ?, destinations_json = ?,
             results_json = ?, badges_json = ?, source_file = ?,
             transformed_file = ?, content_hash = ?, duration_seconds = ?,
             width = ?, height = ?, download_percent = ?, transform_percent = ?,
             upload_percent = ?, progress_message = ?, error_message = ?,
             updated_at = ?, last_heartbeat = ?
         WHERE id = ?`,
		item.SourceURL,
		item.Position,
		item.Status,
		encodeJSON(item.Metadata),
		encodeJSON(item.Transform),
		encodeJSON(item.Transport),
		encodeJSON(item.Destinations),
		encodeJSON(item.Results),
		encodeJSON(item.Badges),
		nullableString(item.SourceFile),
		nullableString(item.TransformedFile),
		nullableString(item.ContentHash),
		item.DurationSeconds,
		item.Width,
		item.Height,
		item.DownloadPercent,
		item.TransformPercent,
		item.UploadPercent,
		nullableString(item.ProgressMessage),
		nullableString(item.ErrorMessage),
		item.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(item.LastHeartbeat),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// List returns queue items filtered by status set (or all items when no
// status is provided), in queue order.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + itemColumns + ` FROM queue_items`
	orderClause := ` ORDER BY position, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// NextForProcessing returns the first actionable item in queue order, or nil
// when the queue is drained.
func (s *Store) NextForProcessing(ctx context.Context) (*Item, error) {
	statuses := ActionableStatuses()
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}

	query := `SELECT ` + itemColumns + ` FROM queue_items WHERE status IN (` + placeholders + `) ORDER BY position, id LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// MoveDirection selects which neighbor Move swaps with.
type MoveDirection string

const (
	MoveUp   MoveDirection = "up"
	MoveDown MoveDirection = "down"
)

// Move swaps an item with its neighbor in queue order. Moving past a
// boundary is a no-op. Items currently being processed cannot be moved.
func (s *Store) Move(ctx context.Context, id int64, direction MoveDirection) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin move tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var position int64
	var statusStr string
	err = tx.QueryRowContext(ctx, `SELECT position, status FROM queue_items WHERE id = ?`, id).Scan(&position, &statusStr)
	if errors.Is(err, sql.ErrNoRows) {
		return false, services.Wrap(services.ErrValidation, "queue", "move", fmt.Sprintf("item %d not found", id), nil)
	}
	if err != nil {
		return false, fmt.Errorf("load item position: %w", err)
	}
	if IsProcessingStatus(Status(statusStr)) {
		return false, services.Wrap(services.ErrValidation, "queue", "move", fmt.Sprintf("item %d is being processed", id), nil)
	}

	var neighborQuery string
	switch direction {
	case MoveUp:
		neighborQuery = `SELECT id, position FROM queue_items WHERE position < ? ORDER BY position DESC, id DESC LIMIT 1`
	case MoveDown:
		neighborQuery = `SELECT id, position FROM queue_items WHERE position > ? ORDER BY position, id LIMIT 1`
	default:
		return false, services.Wrap(services.ErrValidation, "queue", "move", fmt.Sprintf("unknown direction %q", direction), nil)
	}

	var neighborID, neighborPosition int64
	err = tx.QueryRowContext(ctx, neighborQuery, position).Scan(&neighborID, &neighborPosition)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil // already at the boundary
	}
	if err != nil {
		return false, fmt.Errorf("load neighbor: %w", err)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, `UPDATE queue_items SET position = ?, updated_at = ? WHERE id = ?`, neighborPosition, timestamp, id); err != nil {
		return false, fmt.Errorf("move item: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE queue_items SET position = ?, updated_at = ? WHERE id = ?`, position, timestamp, neighborID); err != nil {
		return false, fmt.Errorf("move neighbor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit move: %w", err)
	}
	return true, nil
}

// Remove deletes an item by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queue_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes only completed items from the queue.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queue_items WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all items from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queue_items`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed items back to pending for reprocessing. With no
// ids, every failed item is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE queue_items
            SET status = ?, download_percent = 0, transform_percent = 0,
                upload_percent = 0, progress_message = 'Retry requested',
                error_message = NULL, updated_at = ?
            WHERE status = ?`,
			StatusPending,
			timestamp,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed items: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+3)
	args = append(args, StatusPending, timestamp)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, StatusFailed)
	query := `UPDATE queue_items
        SET status = ?, download_percent = 0, transform_percent = 0,
            upload_percent = 0, progress_message = 'Retry requested',
            error_message = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = ?`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected items: %w", err)
	}
	return res.RowsAffected()
}

// ResetStuckProcessing returns items left in processing states (e.g. after a
// crash) to their previous resting state so the worker can resume them.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	var total int64
	resets := []struct {
		from Status
		to   Status
	}{
		{StatusDownloading, StatusPending},
		{StatusTransforming, StatusDownloaded},
		{StatusUploading, StatusTransformed},
	}
	for _, reset := range resets {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE queue_items
            SET status = ?, progress_message = 'Reset after interrupted processing',
                last_heartbeat = NULL, updated_at = ?
            WHERE status = ?`,
			reset.to,
			timestamp,
			reset.from,
		)
		if err != nil {
			return total, fmt.Errorf("reset stuck items: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += affected
	}
	return total, nil
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight item.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_items SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now,
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// Stats returns a count of items grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM queue_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}
