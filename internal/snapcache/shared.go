package snapcache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/iptvbridge/iptv-bridge/internal/catalog"
)

// SharedStore mirrors serialized snapshots across processes. Both operations
// are best-effort: a failing store degrades the cache to local-only, it
// never fails a GetOrBuild.
type SharedStore interface {
	// Get returns the stored value for key, with ok=false on a clean miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value under key with an expiry of ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// BackendError marks a shared-store failure. Absorbed by the cache; exposed
// so diagnostics can tell backend trouble from payload corruption.
type BackendError struct {
	Backend string
	Op      string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("shared store %s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

const storeKeyPrefix = "iptvbridge:snapshot:"

// storeKey namespaces fingerprints inside a shared backend.
func storeKey(fingerprint string) string {
	return storeKeyPrefix + fingerprint
}

// EncodeSnapshot serializes a snapshot as brotli-compressed JSON. Catalog
// snapshots are text-heavy and compress an order of magnitude, which matters
// when the mirror is a network hop away.
func EncodeSnapshot(snap *catalog.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.BestSpeed)
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot reverses EncodeSnapshot.
func DecodeSnapshot(data []byte) (*catalog.Snapshot, error) {
	r := brotli.NewReader(bytes.NewReader(data))
	var snap catalog.Snapshot
	if err := json.NewDecoder(io.LimitReader(r, maxSnapshotBytes)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// maxSnapshotBytes caps the decompressed size of a mirrored snapshot.
const maxSnapshotBytes = 256 << 20
