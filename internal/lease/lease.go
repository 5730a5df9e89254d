// Package lease provides a local, single-host concurrency guard for
// migration runs. Concurrent driver invocations against the same
// backend are otherwise undefined; this package takes the cheaper half
// of the problem — a host-local file lock keyed by the backend URI —
// which serializes accidental double-invocation on one machine without
// claiming to solve distributed coordination.
package lease

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// defaultRetryDelay bounds how often TryLockContext polls for the lock.
const defaultRetryDelay = 50 * time.Millisecond

// Lease is acquired around a migration leg and released when it ends.
type Lease interface {
	Acquire(ctx context.Context) error
	Release()
}

type fileLease struct {
	flock *flock.Flock
}

// ForTarget returns a Lease keyed by a hash of the backend URI, stored
// under the OS temp directory so unrelated vectorctl invocations against
// different targets never contend with each other.
func ForTarget(uri string) Lease {
	sum := sha256.Sum256([]byte(uri))
	name := fmt.Sprintf("vectorctl-%s.lock", hex.EncodeToString(sum[:8]))
	return &fileLease{flock: flock.New(filepath.Join(os.TempDir(), name))}
}

func (l *fileLease) Acquire(ctx context.Context) error {
	locked, err := l.flock.TryLockContext(ctx, defaultRetryDelay)
	if err != nil {
		return fmt.Errorf("lease: %w", err)
	}
	if !locked {
		return fmt.Errorf("lease: another vectorctl invocation holds it")
	}
	return nil
}

func (l *fileLease) Release() {
	_ = l.flock.Unlock()
}
