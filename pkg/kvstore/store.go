// Package kvstore abstracts the shared key-value store the two scheduled
// workers publish to and the read API reads from. Exactly three keys are
// ever used (see Keys below); every write is a single atomic whole-value
// replacement, so a reader only ever observes a complete prior value or a
// complete new one.
package kvstore

import (
	"context"
	"time"
)

// The only three keys this system ever reads or writes.
const (
	KeyScheduleData     = "schedule:data"
	KeyScheduleMeta     = "schedule:meta"
	KeyRealtimeStatus   = "realtime:status"
)

// PutOptions configures a write. TTL of zero means the value never expires
// (used for the two schedule keys). Metadata is an optional small sidecar
// map stored alongside the value and returned by Get (used to carry the
// realtime feed timestamp for ETag support).
type PutOptions struct {
	TTL      time.Duration
	Metadata map[string]string
}

// Store is the capability surface every backend must provide: get-with-
// metadata, put-with-TTL-and-metadata. There is deliberately no partial-read
// or partial-write operation.
type Store interface {
	// Get returns the stored value and any metadata, or ok=false if the key
	// is absent or has expired.
	Get(ctx context.Context, key string) (value []byte, metadata map[string]string, ok bool, err error)

	// Put atomically replaces the value (and metadata) stored at key.
	Put(ctx context.Context, key string, value []byte, opts PutOptions) error
}
