// Package backend defines the polymorphic contract the migration engine
// consumes to talk to a target vector store, without depending on any
// concrete driver. Exactly one concrete backend is wired in at build
// time by internal/cli.NewRootCommand (qdrant.Open unless the caller
// passes another Opener); there is no runtime multiplexing.
package backend

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Backend hides store-specific connection details behind the one
// operation the migration engine needs: obtaining a ledger handle.
// Implementations must be safe for concurrent use, since a Context may
// be shared read-only across migrations running in the same process.
type Backend interface {
	// Ledger returns a value sharing this backend's underlying client.
	// It is cheap and may be called once per driver invocation.
	Ledger() Ledger
}

// Record is the persisted shape of one ledger entry: the migration's
// display name (the correlation key against the in-memory graph) and
// the UTC instant it was recorded applied.
type Record struct {
	Name      string
	AppliedAt time.Time
}

// Ledger is the durable set of applied revisions inside the target
// vector store, keyed by display name and valued by an opaque
// per-record handle assigned at insert time.
type Ledger interface {
	// CollectionName returns the dedicated collection name. Stable
	// across backends for observability, even though the concrete
	// collection layout is driver-specific.
	CollectionName() string

	// Ensure creates the ledger collection if it does not already
	// exist. Idempotent: calling it twice never errors and never
	// changes collection state after the first call.
	Ensure(ctx context.Context) error

	// Retrieve scans every record with a payload, dropping any whose
	// point identifier is not a UUID and any whose payload does not
	// decode to a Record. It fails if two records share a Name.
	Retrieve(ctx context.Context) (map[string]uuid.UUID, error)

	// InsertMany inserts one record per name with AppliedAt set to the
	// current UTC instant and a freshly generated UUIDv7 identifier. It
	// blocks until the store acknowledges durability.
	InsertMany(ctx context.Context, names []string) error

	// DeleteMany deletes the records addressed by the given handles. It
	// blocks until the store acknowledges the deletion.
	DeleteMany(ctx context.Context, handles []uuid.UUID) error
}

// Opener constructs a Backend from a store URI and optional API key.
// Concrete drivers (e.g. backend/qdrant.Open) implement this signature.
// Opening may be lazy: a bad URI or unreachable endpoint is allowed to
// surface on the first real call instead of at Open time, but it must
// surface eventually rather than be silently swallowed.
type Opener func(ctx context.Context, uri string, apiKey string) (Backend, error)
