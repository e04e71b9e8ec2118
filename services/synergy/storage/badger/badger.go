// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package badger provides the embedded journal used as the webhook
// delivery outbox.
//
// Outbound deliveries are written here before the HTTP attempt and
// removed after a terminal outcome, so pending deliveries survive a
// process restart and are replayed on startup. BadgerDB gives
// low-latency local writes without involving the relational store on
// the hot event path.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package badger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Config holds configuration for the journal database.
type Config struct {
	// Path is the directory for database files. Required unless
	// InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence). Useful
	// for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal logging. If nil, internal
	// logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults: durable synchronous
// writes at the given path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a configuration for tests: in-memory, no
// sync.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens the journal database with the given configuration.
//
// Outputs:
//
//	*badger.DB - The opened database. Caller must Close() when done.
//	error - Non-nil if the path is invalid or the database cannot open.
//
// Thread Safety: The returned *badger.DB is safe for concurrent use.
func Open(cfg Config) (*badger.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return db, nil
}

// Outbox is a persistent queue of opaque payloads keyed by id.
//
// Description:
//
//	Entries are keyed by enqueue time so Pending returns them in
//	arrival order. The outbox does not interpret payloads; the webhook
//	dispatcher owns the encoding.
//
// Thread Safety: Safe for concurrent use.
type Outbox struct {
	db *badger.DB
}

// NewOutbox creates an outbox over an open database.
func NewOutbox(db *badger.DB) *Outbox {
	return &Outbox{db: db}
}

const outboxPrefix = "outbox:"

// Item is one pending outbox entry.
type Item struct {
	ID      string
	Payload []byte
}

// Enqueue persists a payload under the given id.
func (o *Outbox) Enqueue(id string, payload []byte) error {
	key := outboxKey(time.Now(), id)
	err := o.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, payload)
	})
	if err != nil {
		return fmt.Errorf("enqueue outbox entry %s: %w", id, err)
	}
	return nil
}

// Pending returns up to limit entries in arrival order. limit <= 0
// returns everything.
func (o *Outbox) Pending(limit int) ([]Item, error) {
	var items []Item
	err := o.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(outboxPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if limit > 0 && len(items) >= limit {
				break
			}
			entry := it.Item()
			payload, err := entry.ValueCopy(nil)
			if err != nil {
				return err
			}
			items = append(items, Item{
				ID:      idFromKey(entry.Key()),
				Payload: payload,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan outbox: %w", err)
	}
	return items, nil
}

// Delete removes an entry after a terminal delivery outcome. Deleting
// an absent entry is a no-op.
func (o *Outbox) Delete(id string) error {
	err := o.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(outboxPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if idFromKey(key) == id {
				return txn.Delete(key)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete outbox entry %s: %w", id, err)
	}
	return nil
}

// outboxKey encodes arrival order into the key so iteration yields
// FIFO order. The id suffix disambiguates same-nanosecond enqueues.
func outboxKey(at time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", outboxPrefix, at.UnixNano(), id))
}

func idFromKey(key []byte) string {
	s := string(key)
	// prefix + 20-digit timestamp + ":".
	offset := len(outboxPrefix) + 21
	if len(s) <= offset {
		return ""
	}
	return s[offset:]
}
