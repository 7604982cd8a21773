// Copyright 2026 © The War Room Authors
// SPDX-License-Identifier: Apache-2.0

// Package journal persists the events agents emit so a run can be replayed or
// inspected after the fact.
package journal

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/rtai-hli/gtc-hackathon/pkg/core"
	wrerrors "github.com/rtai-hli/gtc-hackathon/pkg/errors"
)

// Store persists events.
type Store interface {
	Record(ctx context.Context, ev core.Event) error
	List(ctx context.Context, filter Filter) ([]core.Event, error)
}

// Filter limits event queries. Zero fields match everything.
type Filter struct {
	RunID string
	Agent string
	Type  core.EventType
	Since time.Time
	Limit int
}

func (f Filter) match(ev core.Event) bool {
	if f.RunID != "" && ev.RunID != f.RunID {
		return false
	}
	if f.Agent != "" && ev.Agent != f.Agent {
		return false
	}
	if f.Type != "" && ev.Type != f.Type {
		return false
	}
	if !f.Since.IsZero() && ev.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// MemoryStore keeps events in memory.
type MemoryStore struct {
	mu     sync.Mutex
	events []core.Event
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record appends an event.
func (s *MemoryStore) Record(_ context.Context, ev core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// List returns matching events in recording order.
func (s *MemoryStore) List(_ context.Context, filter Filter) ([]core.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Event, 0, len(s.events))
	for _, ev := range s.events {
		if !filter.match(ev) {
			continue
		}
		out = append(out, ev)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Listener returns a core.Listener that records every event into store.
func Listener(store Store) core.Listener {
	return core.ListenerFunc(func(ctx context.Context, ev core.Event) error {
		return store.Record(ctx, ev)
	})
}

// Open builds a store for the configured driver. The sqlite driver opens dsn
// with modernc's pure-Go driver; the returned close func releases it.
func Open(driver, dsn string) (Store, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "memory":
		return NewMemoryStore(), func() error { return nil }, nil
	case "sqlite":
		if dsn == "" {
			dsn = "file:warroom.db"
		}
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, nil, wrerrors.New(wrerrors.CodeConfig, "open journal database", err).
				WithContext("dsn", dsn)
		}
		store, err := NewSQLiteStore(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, db.Close, nil
	default:
		return nil, nil, wrerrors.New(wrerrors.CodeConfig, "unknown journal driver", nil).
			WithContext("driver", driver)
	}
}
