// Package qdrant is the concrete backend.Backend driver against a
// Qdrant vector store: a dedicated "_qdrant_migration" collection with
// a dummy 1-dimensional cosine vector space, points addressed by UUID,
// payload {name, applied_at}.
package qdrant

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/aqora-io/vectorctl/internal/backend"
	"github.com/aqora-io/vectorctl/internal/migration"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// ledgerCollection is stable across backends for observability, even
// though only this driver ever creates it.
const ledgerCollection = "_qdrant_migration"

// Backend wraps a qdrant.Client. The client is safe for concurrent use
// and is shared by value into the Ledger it hands out.
type Backend struct {
	client *qdrant.Client
}

// Open dials uri (host:port form expected by the Qdrant gRPC client) and
// returns a backend.Backend. The endpoint is health-checked before Open
// returns, so a bad address or unreachable endpoint surfaces here as an
// error rather than being deferred to the first ledger call.
func Open(ctx context.Context, uri string, apiKey string) (backend.Backend, error) {
	host, port, err := splitHostPort(uri)
	if err != nil {
		return nil, fmt.Errorf("backend: qdrant: %w", err)
	}

	config := &qdrant.Config{
		Host: host,
		Port: port,
	}
	if apiKey != "" {
		config.APIKey = apiKey
	}

	client, err := qdrant.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("backend: qdrant: connect %s: %w", uri, err)
	}

	// Fail fast on an unreachable endpoint instead of deferring to the
	// first migration command the caller runs.
	if _, err := client.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("backend: qdrant: health check %s: %w", uri, err)
	}

	return &Backend{client: client}, nil
}

// Ledger returns a ledger handle sharing this backend's client.
func (b *Backend) Ledger() backend.Ledger {
	return &ledger{client: b.client}
}

// Client exposes the underlying driver client for callers that need to
// reach the store beyond the Ledger interface, e.g. a migration's
// context-setup hook registering it as an injected resource so
// individual migrations can manipulate collections directly.
func (b *Backend) Client() *qdrant.Client {
	return b.client
}

type ledger struct {
	client *qdrant.Client
}

func (l *ledger) CollectionName() string { return ledgerCollection }

func (l *ledger) Ensure(ctx context.Context) error {
	exists, err := l.client.CollectionExists(ctx, ledgerCollection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", ledgerCollection, err)
	}
	if exists {
		return nil
	}

	err = l.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: ledgerCollection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     1,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", ledgerCollection, err)
	}
	return nil
}

func (l *ledger) Retrieve(ctx context.Context) (map[string]uuid.UUID, error) {
	points, err := l.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: ledgerCollection,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("scroll collection %s: %w", ledgerCollection, err)
	}

	result := make(map[string]uuid.UUID, len(points))
	for _, point := range points {
		id, ok := pointUUID(point.GetId())
		if !ok {
			// Numeric or malformed identifiers are ignored, per spec.
			continue
		}
		record, ok := decodeRecord(point.GetPayload())
		if !ok {
			continue
		}
		if existing, dup := result[record.Name]; dup && existing != id {
			return nil, migration.DuplicateLedgerNameErrorf("duplicate ledger entry for %q", record.Name)
		}
		result[record.Name] = id
	}
	return result, nil
}

func (l *ledger) InsertMany(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	now := time.Now().UTC()
	points := make([]*qdrant.PointStruct, len(names))
	for i, name := range names {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.Must(uuid.NewV7()).String()),
			Vectors: qdrant.NewVectors(0.0),
			Payload: qdrant.NewValueMap(map[string]any{
				"name":       name,
				"applied_at": now.Format(time.RFC3339),
			}),
		}
	}

	waitUpsert := true
	_, err := l.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: ledgerCollection,
		Points:         points,
		Wait:           &waitUpsert,
	})
	if err != nil {
		return fmt.Errorf("upsert %d ledger record(s): %w", len(names), err)
	}
	return nil
}

func (l *ledger) DeleteMany(ctx context.Context, handles []uuid.UUID) error {
	if len(handles) == 0 {
		return nil
	}
	ids := make([]*qdrant.PointId, len(handles))
	for i, h := range handles {
		ids[i] = qdrant.NewIDUUID(h.String())
	}

	waitDelete := true
	_, err := l.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: ledgerCollection,
		Points:         qdrant.NewPointsSelectorIDs(ids),
		Wait:           &waitDelete,
	})
	if err != nil {
		return fmt.Errorf("delete %d ledger record(s): %w", len(handles), err)
	}
	return nil
}

func pointUUID(id *qdrant.PointId) (uuid.UUID, bool) {
	if id == nil {
		return uuid.UUID{}, false
	}
	s, ok := id.GetPointIdOptions().(*qdrant.PointId_Uuid)
	if !ok {
		return uuid.UUID{}, false
	}
	parsed, err := uuid.Parse(s.Uuid)
	if err != nil {
		return uuid.UUID{}, false
	}
	return parsed, true
}

// splitHostPort accepts either a bare host:port or a URL like
// http://localhost:6334 (the CLI's default), matching what downstream
// callers naturally pass via DATABASE_URL.
func splitHostPort(uri string) (string, int, error) {
	candidate := uri
	if u, err := url.Parse(uri); err == nil && u.Host != "" {
		candidate = u.Host
	}
	host, portStr, err := net.SplitHostPort(candidate)
	if err != nil {
		return "", 0, fmt.Errorf("invalid database URL %q: %w", uri, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in database URL %q: %w", uri, err)
	}
	return host, port, nil
}

func decodeRecord(payload map[string]*qdrant.Value) (backend.Record, bool) {
	name, ok := payload["name"]
	if !ok || name.GetStringValue() == "" {
		return backend.Record{}, false
	}
	appliedAtRaw, ok := payload["applied_at"]
	if !ok {
		return backend.Record{}, false
	}
	appliedAt, err := time.Parse(time.RFC3339, appliedAtRaw.GetStringValue())
	if err != nil {
		return backend.Record{}, false
	}
	return backend.Record{Name: name.GetStringValue(), AppliedAt: appliedAt}, true
}
