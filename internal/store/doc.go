// Package store provides SQLite-backed durable storage for data blocks.
//
// Every record is written as two rows:
//   - data_headers: name, block type, creation time, record id
//   - data_bodies: content plus a header_seq back-reference to its header
//
// The header row never refers to its body. Both rows are inserted in one
// transaction so a record is either fully present or absent.
//
// # Lookups
//
// FindByType and FindByName scan the tables without supporting indexes on
// name or type; both are O(n) in the number of stored records. Names are
// not unique: re-inserting a name appends a second record, and FindByName
// returns the most recently inserted match.
//
// # Ordering
//
// All ordering uses seq INTEGER (insertion order), never timestamps, so
// results are deterministic regardless of wall-clock skew.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce the body → header reference
//
// Alternative backends live in the pebblestore and pgstore subpackages and
// satisfy the same BlockStore interface.
package store
