// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package badger

import (
	"testing"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestOutbox(t *testing.T) *Outbox {
	t.Helper()
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewOutbox(db)
}

// TestOpenInMemory verifies in-memory database creation works.
func TestOpenInMemory(t *testing.T) {
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer db.Close()

	err = db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte("key"), []byte("value"))
	})
	require.NoError(t, err)

	err = db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte("key"))
		require.NoError(t, err)

		return item.Value(func(val []byte) error {
			assert.Equal(t, []byte("value"), val)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err, "persistent config without a path must be rejected")
}

// TestOutbox_FIFO verifies pending deliveries come back in enqueue order.
func TestOutbox_FIFO(t *testing.T) {
	outbox := openTestOutbox(t)

	for _, id := range []string{"d1", "d2", "d3"} {
		require.NoError(t, outbox.Enqueue(id, []byte("payload-"+id)))
	}

	items, err := outbox.Pending(0)
	require.NoError(t, err)
	require.Len(t, items, 3)

	for i, want := range []string{"d1", "d2", "d3"} {
		assert.Equal(t, want, items[i].ID, "position %d", i)
		assert.Equal(t, []byte("payload-"+want), items[i].Payload)
	}
}

func TestOutbox_PendingLimit(t *testing.T) {
	outbox := openTestOutbox(t)

	for _, id := range []string{"d1", "d2", "d3"} {
		require.NoError(t, outbox.Enqueue(id, []byte("x")))
	}

	items, err := outbox.Pending(2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestOutbox_Delete(t *testing.T) {
	outbox := openTestOutbox(t)

	require.NoError(t, outbox.Enqueue("d1", []byte("x")))
	require.NoError(t, outbox.Enqueue("d2", []byte("y")))

	require.NoError(t, outbox.Delete("d1"))
	// Deleting an absent id is a no-op.
	require.NoError(t, outbox.Delete("d1"))

	items, err := outbox.Pending(0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "d2", items[0].ID)
}
