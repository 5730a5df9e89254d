package migration

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aqora-io/vectorctl/internal/backend"
	"github.com/aqora-io/vectorctl/internal/lease"
	"github.com/google/uuid"
)

// Direction is which way a leg travels through the revision graph.
type Direction int

const (
	Up Direction = iota
	Down
	Refresh
)

// Migrator ties graph traversal to ledger mutation and user Up/Down
// calls. It holds no state across invocations other than the memoized
// structural graph (nodes and links only, never applied-state).
type Migrator struct {
	ctx        *Context
	migrations []Migration
	lease      lease.Lease // nil disables the local concurrency guard

	once      sync.Once
	structure *Graph
	buildErr  error
}

// New constructs a Migrator over a fixed, caller-declared migration set.
// The set's order only determines the graph's arena layout, never the
// chain itself, which is defined by each Revision's DownRevisionID.
func New(ctx *Context, migrations []Migration, opts ...Option) *Migrator {
	m := &Migrator{ctx: ctx, migrations: migrations}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Option configures optional Migrator behavior.
type Option func(*Migrator)

// WithLease enables the local file-lease guard (see internal/lease)
// around Up/Down/Refresh/Reset, serializing concurrent invocations
// against the same backend URI from this host. It does not protect
// against concurrent runners on different hosts.
func WithLease(l lease.Lease) Option {
	return func(m *Migrator) { m.lease = l }
}

// structuralGraph builds (once) the graph from declared migrations with
// no applied-state annotation. It is memoized for the lifetime of the
// Migrator value, not process-wide: the caller owns how long a Migrator
// lives, so a long-lived process never pins a stale applied snapshot.
func (m *Migrator) structuralGraph() (*Graph, error) {
	m.once.Do(func() {
		entries := make([]Entry, len(m.migrations))
		for i, mig := range m.migrations {
			entries[i] = Entry{Migration: mig, Revision: mig.Revision(), Status: StatusPending}
		}
		m.structure, m.buildErr = NewGraph(entries)
	})
	return m.structure, m.buildErr
}

// withStatus returns a shallow copy of the structural graph's entries
// overlaid with fresh applied-state from the ledger, so every call sees
// the current ledger contents even though node/link structure is cached.
func (m *Migrator) withStatus(applied map[string]uuid.UUID) (*Graph, error) {
	structure, err := m.structuralGraph()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(structure.nodes))
	for i, n := range structure.nodes {
		e := n.entry
		if h, ok := applied[e.Migration.Name()]; ok {
			handle := h
			e.Handle = &handle
			e.Status = StatusApplied
		} else {
			e.Handle = nil
			e.Status = StatusPending
		}
		entries[i] = e
	}
	return NewGraph(entries)
}

func (m *Migrator) ledger() backend.Ledger {
	return m.ctx.Backend().Ledger()
}

func (m *Migrator) withLeaseHeld(ctx context.Context, fn func() error) error {
	if m.lease == nil {
		return fn()
	}
	if err := m.lease.Acquire(ctx); err != nil {
		return backendErrorf(err, "acquire migration lease")
	}
	defer m.lease.Release()
	return fn()
}

// Up applies pending migrations from the graph's root (or from, if
// given) forward to to (or the head, if nil).
func (m *Migrator) Up(ctx context.Context, from, to *string) error {
	return m.withLeaseHeld(ctx, func() error { return m.execUp(ctx, from, to) })
}

// Down reverts applied migrations from the head back to to (exclusive),
// or to the root if to is nil.
func (m *Migrator) Down(ctx context.Context, to *string) error {
	return m.withLeaseHeld(ctx, func() error { return m.execDown(ctx, to) })
}

// Refresh reverts every applied migration then reapplies every migration
// on the full chain: Down(nil) followed by Up(nil, nil).
func (m *Migrator) Refresh(ctx context.Context) error {
	return m.withLeaseHeld(ctx, func() error {
		if err := m.execDown(ctx, nil); err != nil {
			return err
		}
		return m.execUp(ctx, nil, nil)
	})
}

// Reset reverts every applied migration back to the root: Down(nil).
func (m *Migrator) Reset(ctx context.Context) error {
	return m.withLeaseHeld(ctx, func() error { return m.execDown(ctx, nil) })
}

func (m *Migrator) execUp(ctx context.Context, from, to *string) error {
	ledger := m.ledger()
	if err := ledger.Ensure(ctx); err != nil {
		return backendErrorf(err, "ensure ledger collection")
	}
	applied, err := ledger.Retrieve(ctx)
	if err != nil {
		return backendErrorf(err, "retrieve ledger records")
	}
	graph, err := m.withStatus(applied)
	if err != nil {
		return err
	}

	start := from
	if start == nil {
		q := graph.Queue()
		start = &q
	}
	target := graph.Head()
	if to != nil {
		target = *to
	}

	path, err := graph.ForwardPath(start, target)
	if err != nil {
		return err
	}

	for _, revisionID := range path {
		entry, ok := graph.Get(revisionID)
		if !ok {
			return newError(KindGraph, fmt.Sprintf("revision `%s`", revisionID), nil)
		}
		if entry.Status != StatusPending {
			continue
		}
		if err := entry.Migration.Up(ctx, m.ctx); err != nil {
			return err
		}
		if err := ledger.InsertMany(ctx, []string{entry.Migration.Name()}); err != nil {
			return backendErrorf(err, "record migration `%s` as applied", entry.Migration.Name())
		}
	}
	return nil
}

func (m *Migrator) execDown(ctx context.Context, to *string) error {
	ledger := m.ledger()
	if err := ledger.Ensure(ctx); err != nil {
		return backendErrorf(err, "ensure ledger collection")
	}
	applied, err := ledger.Retrieve(ctx)
	if err != nil {
		return backendErrorf(err, "retrieve ledger records")
	}
	graph, err := m.withStatus(applied)
	if err != nil {
		return err
	}

	head := graph.Head()
	path := graph.BackwardPath(&head, to)

	for _, revisionID := range path {
		entry, ok := graph.Get(revisionID)
		if !ok {
			return newError(KindGraph, fmt.Sprintf("revision `%s`", revisionID), nil)
		}
		if entry.Status != StatusApplied {
			continue
		}
		if entry.Handle == nil {
			return newError(KindGraph, fmt.Sprintf("applied revision `%s` has no ledger handle", revisionID), nil)
		}
		if err := entry.Migration.Down(ctx, m.ctx); err != nil {
			return err
		}
		if err := ledger.DeleteMany(ctx, []uuid.UUID{*entry.Handle}); err != nil {
			return backendErrorf(err, "remove migration `%s` from ledger", entry.Migration.Name())
		}
	}
	return nil
}

// StatusLine is one row of Status()'s report.
type StatusLine struct {
	DisplayName string
	Status      Status
}

// Status builds the graph and reports every migration in forward order.
func (m *Migrator) Status(ctx context.Context) ([]StatusLine, error) {
	ledger := m.ledger()
	if err := ledger.Ensure(ctx); err != nil {
		return nil, backendErrorf(err, "ensure ledger collection")
	}
	applied, err := ledger.Retrieve(ctx)
	if err != nil {
		return nil, backendErrorf(err, "retrieve ledger records")
	}
	graph, err := m.withStatus(applied)
	if err != nil {
		return nil, err
	}

	order := graph.ForwardOrder()
	lines := make([]StatusLine, 0, len(order))
	for _, revisionID := range order {
		entry, _ := graph.Get(revisionID)
		lines = append(lines, StatusLine{DisplayName: entry.Migration.Name(), Status: entry.Status})
	}
	return lines, nil
}

// LatestRevision returns the declared migration with the maximal date.
// internal/scaffold does not call it: the scaffolder chains a newly
// generated migration onto the last entry of its manifest.
func (m *Migrator) LatestRevision() (Revision, error) {
	if len(m.migrations) == 0 {
		return Revision{}, ErrMissingMigration
	}
	revs := make([]Revision, len(m.migrations))
	for i, mig := range m.migrations {
		revs[i] = mig.Revision()
	}
	sort.Slice(revs, func(i, j int) bool { return revs[i].Date.Before(revs[j].Date) })
	return revs[len(revs)-1], nil
}
