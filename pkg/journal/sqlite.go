// Copyright 2026 © The War Room Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rtai-hli/gtc-hackathon/pkg/core"

	_ "modernc.org/sqlite"
)

// sortableLayout keeps lexical order equal to chronological order.
const sortableLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore persists events in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed store and ensures the schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureJournalSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Record stores a single event.
func (s *SQLiteStore) Record(ctx context.Context, ev core.Event) error {
	metadata, err := json.Marshal(ev.Metadata())
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO journal_events (run_id, agent, type, content, metadata_json, ts)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		ev.RunID,
		ev.Agent,
		string(ev.Type),
		ev.Content,
		string(metadata),
		ev.Timestamp.UTC().Format(sortableLayout),
	)
	return err
}

// List returns matching events in recording order.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]core.Event, error) {
	query := `SELECT run_id, agent, type, content, metadata_json, ts FROM journal_events`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value)
	}
	if filter.RunID != "" {
		addFilter("run_id = ?", filter.RunID)
	}
	if filter.Agent != "" {
		addFilter("agent = ?", filter.Agent)
	}
	if filter.Type != "" {
		addFilter("type = ?", string(filter.Type))
	}
	if !filter.Since.IsZero() {
		addFilter("ts >= ?", filter.Since.UTC().Format(sortableLayout))
	}
	query += where + " ORDER BY id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []core.Event
	for rows.Next() {
		var (
			runID, agent, typ, content, metadataJSON, ts string
		)
		if err := rows.Scan(&runID, &agent, &typ, &content, &metadataJSON, &ts); err != nil {
			return nil, err
		}
		ev, err := decodeRow(runID, agent, typ, content, metadataJSON, ts)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func decodeRow(runID, agent, typ, content, metadataJSON, ts string) (core.Event, error) {
	et, err := core.ParseEventType(typ)
	if err != nil {
		return core.Event{}, err
	}
	var md map[string]any
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &md); err != nil {
			return core.Event{}, err
		}
	}
	payload, err := core.DecodePayload(et, md)
	if err != nil {
		return core.Event{}, err
	}
	when, err := time.Parse(sortableLayout, ts)
	if err != nil {
		return core.Event{}, err
	}
	return core.Event{
		Agent:     agent,
		Type:      et,
		Content:   content,
		Payload:   payload,
		Timestamp: when.Local(),
		RunID:     runID,
	}, nil
}

func ensureJournalSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS journal_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			agent TEXT NOT NULL,
			type TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata_json TEXT,
			ts TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_journal_run ON journal_events(run_id);
		CREATE INDEX IF NOT EXISTS idx_journal_agent ON journal_events(agent);
		CREATE INDEX IF NOT EXISTS idx_journal_type ON journal_events(type);
	`)
	return err
}
