package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const runColumns = "id, topic, slug, mode, status, failure_kind, error_message, files_json, warnings_json, started_at, finished_at"

// Begin records a freshly started run.
func (s *Store) Begin(ctx context.Context, id, topic, slug, mode string) (*Run, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("run id required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, topic, slug, mode, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, topic, slug, mode, StatusRunning, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return s.Get(ctx, id)
}

// Complete marks a run as finished with its rendered files and warnings.
func (s *Store) Complete(ctx context.Context, id string, files map[string]string, warnings []string) error {
	return s.finish(ctx, id, StatusCompleted, "", "", files, warnings)
}

// Fail marks a run as failed while preserving whatever it produced.
func (s *Store) Fail(ctx context.Context, id, failureKind, message string, files map[string]string, warnings []string) error {
	return s.finish(ctx, id, StatusFailed, failureKind, message, files, warnings)
}

func (s *Store) finish(ctx context.Context, id string, status Status, failureKind, message string, files map[string]string, warnings []string) error {
	filesJSON, err := marshalJSONColumn(files)
	if err != nil {
		return fmt.Errorf("marshal files: %w", err)
	}
	warningsJSON, err := marshalJSONColumn(warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err = s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, failure_kind = ?, error_message = ?, files_json = ?, warnings_json = ?, finished_at = ? WHERE id = ?`,
		status, nullableString(failureKind), nullableString(message), filesJSON, warningsJSON, now, id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Get fetches one run by identifier. A missing run returns nil without error.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// DeleteOlderThan removes finished runs whose start time predates cutoff.
// Open runs are kept regardless of age.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	var deleted int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx,
			`DELETE FROM runs WHERE started_at < ? AND status != ?`,
			cutoff.UTC().Format(time.RFC3339Nano), StatusRunning)
		if execErr != nil {
			return execErr
		}
		deleted, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("delete old runs: %w", err)
	}
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run          Run
		status       string
		failureKind  sql.NullString
		errorMessage sql.NullString
		filesJSON    sql.NullString
		warningsJSON sql.NullString
		startedAt    string
		finishedAt   sql.NullString
	)
	err := row.Scan(&run.ID, &run.Topic, &run.Slug, &run.Mode, &status,
		&failureKind, &errorMessage, &filesJSON, &warningsJSON, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	run.Status = Status(status)
	run.FailureKind = failureKind.String
	run.ErrorMessage = errorMessage.String
	if filesJSON.Valid && filesJSON.String != "" {
		if err := json.Unmarshal([]byte(filesJSON.String), &run.Files); err != nil {
			return nil, fmt.Errorf("decode files json: %w", err)
		}
	}
	if warningsJSON.Valid && warningsJSON.String != "" {
		if err := json.Unmarshal([]byte(warningsJSON.String), &run.Warnings); err != nil {
			return nil, fmt.Errorf("decode warnings json: %w", err)
		}
	}
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if finishedAt.Valid && finishedAt.String != "" {
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt.String); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
	}
	return &run, nil
}

func marshalJSONColumn(v any) (any, error) {
	switch value := v.(type) {
	case map[string]string:
		if len(value) == 0 {
			return nil, nil
		}
	case []string:
		if len(value) == 0 {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullableString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
