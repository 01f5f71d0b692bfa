// Package store provides a SQLite-backed triple store with live queries.
//
// Entities are stored as append-only triples (entity, attribute, value).
// Nested records are flattened to dotted attribute paths; sets are stored as
// a single array value. Reading an entity reconstructs it from the latest
// triple of each attribute.
//
// # Critical Patterns
//
// Logical time:
//   - Every write is stamped with seq from a monotonic logical clock
//   - All triples of one write share its seq
//   - Ordering never uses timestamps
//
// Deterministic reads:
//   - All scans include ORDER BY entity_id, attribute COLLATE BINARY, seq
//   - Fetch results are sorted by the query's Order with an id tie-break
//
// Live queries:
//   - Subscribe delivers a full snapshot immediately and after every write
//     to a collection the query reads
//   - Snapshots are delivered from a single dispatcher goroutine, so the
//     callbacks of one subscription never run concurrently
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Values are encoded with RFC 8785 canonical JSON from internal/ir.
package store
