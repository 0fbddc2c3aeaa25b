package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
	"github.com/custodia-labs/notelink-cli/internal/core/ports/driven"
)

// failureStore implements driven.FailureStore.
type failureStore struct {
	store *Store
}

var _ driven.FailureStore = (*failureStore)(nil)

// batchItem is the JSON row format for domain.BatchItem.
type batchItem struct {
	DocumentID string `json:"documentId"`
	Position   int    `json:"position"`
	Label      string `json:"label"`
}

func encodeItems(items []domain.BatchItem) (string, error) {
	rows := make([]batchItem, 0, len(items))
	for _, item := range items {
		rows = append(rows, batchItem{DocumentID: item.DocumentID, Position: item.Position, Label: item.Label})
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("marshalling items: %w", err)
	}
	return string(data), nil
}

func decodeItems(data string) ([]domain.BatchItem, error) {
	var rows []batchItem
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return nil, fmt.Errorf("unmarshalling items: %w", err)
	}
	items := make([]domain.BatchItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.BatchItem{DocumentID: row.DocumentID, Position: row.Position, Label: row.Label})
	}
	return items, nil
}

// Record stores a new failure and returns its generated id.
func (s *failureStore) Record(ctx context.Context, record domain.FailureRecord) (string, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now().UTC()
	}

	itemsJSON, err := encodeItems(record.Items)
	if err != nil {
		return "", err
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO failures (id, occurred_at, kind, items, message, error_kind, status_code, resolved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.OccurredAt.UTC(), string(record.Kind), itemsJSON,
		record.Message, string(record.ErrorKind), record.StatusCode, boolToInt(record.Resolved))

	if err != nil {
		return "", fmt.Errorf("saving failure: %w", err)
	}
	return record.ID, nil
}

// UnresolvedItems returns the document ids from all unresolved records of
// the given kind, deduplicated.
func (s *failureStore) UnresolvedItems(ctx context.Context, kind domain.FailureKind) (map[string]bool, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT items FROM failures WHERE kind = ? AND resolved = 0
	`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("querying failures: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var itemsJSON string
		if err := rows.Scan(&itemsJSON); err != nil {
			return nil, fmt.Errorf("scanning failure: %w", err)
		}
		items, err := decodeItems(itemsJSON)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			ids[item.DocumentID] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating failures: %w", err)
	}
	return ids, nil
}

// List returns all failure records, newest first.
func (s *failureStore) List(ctx context.Context, unresolvedOnly bool) ([]domain.FailureRecord, error) {
	query := `
		SELECT id, occurred_at, kind, items, message, error_kind, status_code, resolved
		FROM failures
	`
	if unresolvedOnly {
		query += " WHERE resolved = 0"
	}
	query += " ORDER BY occurred_at DESC"

	rows, err := s.store.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying failures: %w", err)
	}
	defer rows.Close()

	var records []domain.FailureRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var record domain.FailureRecord
		var kind, itemsJSON, errorKind string
		var resolved int
		if err := rows.Scan(&record.ID, &record.OccurredAt, &kind, &itemsJSON,
			&record.Message, &errorKind, &record.StatusCode, &resolved); err != nil {
			return nil, fmt.Errorf("scanning failure: %w", err)
		}
		record.Kind = domain.FailureKind(kind)
		record.ErrorKind = domain.ErrorKind(errorKind)
		record.Resolved = resolved != 0
		if record.Items, err = decodeItems(itemsJSON); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating failures: %w", err)
	}
	return records, nil
}

// Resolve marks a record resolved by id.
func (s *failureStore) Resolve(ctx context.Context, id string) error {
	result, err := s.store.db.ExecContext(ctx, "UPDATE failures SET resolved = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("resolving failure: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolving failure: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("failure %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ResolveItems applies per-item resolution to every unresolved record of the
// given kind: succeeded items are dropped from the record, and a record whose
// items all succeeded is marked resolved. Items that keep failing stay behind
// for the next retry without dragging the healed ones along.
func (s *failureStore) ResolveItems(ctx context.Context, kind domain.FailureKind, succeeded map[string]bool) error {
	records, err := s.unresolvedByKind(ctx, kind)
	if err != nil {
		return err
	}

	for _, record := range records {
		remaining := record.Items[:0:0]
		for _, item := range record.Items {
			if !succeeded[item.DocumentID] {
				remaining = append(remaining, item)
			}
		}
		switch {
		case len(record.Items) == 0 || len(remaining) == len(record.Items):
			continue
		case len(remaining) == 0:
			if err := s.Resolve(ctx, record.ID); err != nil {
				return err
			}
		default:
			itemsJSON, err := encodeItems(remaining)
			if err != nil {
				return err
			}
			if _, err := s.store.db.ExecContext(ctx,
				"UPDATE failures SET items = ? WHERE id = ?", itemsJSON, record.ID); err != nil {
				return fmt.Errorf("updating failure items: %w", err)
			}
		}
	}
	return nil
}

func (s *failureStore) unresolvedByKind(ctx context.Context, kind domain.FailureKind) ([]domain.FailureRecord, error) {
	all, err := s.List(ctx, true)
	if err != nil {
		return nil, err
	}
	var records []domain.FailureRecord
	for _, record := range all {
		if record.Kind == kind {
			records = append(records, record)
		}
	}
	return records, nil
}

// Prune removes resolved records older than olderThan. Unresolved records
// are never pruned: dropping one would permanently hide a retry
// opportunity.
func (s *failureStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	result, err := s.store.db.ExecContext(ctx, `
		DELETE FROM failures WHERE resolved = 1 AND occurred_at < ?
	`, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning failures: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning failures: %w", err)
	}
	return int(affected), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
