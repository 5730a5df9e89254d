package migration

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aqora-io/vectorctl/internal/backend"
	"github.com/google/uuid"
)

// fakeLedger is an in-memory double for backend.Ledger, used to drive
// the Migrator through its scenarios without a live store.
type fakeLedger struct {
	ensured     bool
	records     map[string]uuid.UUID
	retrieveErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{records: make(map[string]uuid.UUID)}
}

func (f *fakeLedger) CollectionName() string { return "_qdrant_migration" }

func (f *fakeLedger) Ensure(ctx context.Context) error {
	f.ensured = true
	return nil
}

func (f *fakeLedger) Retrieve(ctx context.Context) (map[string]uuid.UUID, error) {
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	out := make(map[string]uuid.UUID, len(f.records))
	for k, v := range f.records {
		out[k] = v
	}
	return out, nil
}

func (f *fakeLedger) InsertMany(ctx context.Context, names []string) error {
	for _, n := range names {
		f.records[n] = uuid.New()
	}
	return nil
}

func (f *fakeLedger) DeleteMany(ctx context.Context, handles []uuid.UUID) error {
	for _, h := range handles {
		for name, v := range f.records {
			if v == h {
				delete(f.records, name)
			}
		}
	}
	return nil
}

func (f *fakeLedger) names() map[string]bool {
	out := make(map[string]bool, len(f.records))
	for k := range f.records {
		out[k] = true
	}
	return out
}

type fakeBackend struct{ ledger *fakeLedger }

func (b *fakeBackend) Ledger() backend.Ledger { return b.ledger }

// recordingMigration logs Up/Down calls into a shared slice so tests can
// assert ordering, and can be made to fail on demand.
type recordingMigration struct {
	name    string
	rev     Revision
	calls   *[]string
	failUp  bool
	failDwn bool
}

func (m recordingMigration) Name() string       { return m.name }
func (m recordingMigration) Revision() Revision { return m.rev }

func (m recordingMigration) Up(ctx context.Context, mctx *Context) error {
	*m.calls = append(*m.calls, "up:"+m.name)
	if m.failUp {
		return fmt.Errorf("boom up %s", m.name)
	}
	return nil
}

func (m recordingMigration) Down(ctx context.Context, mctx *Context) error {
	*m.calls = append(*m.calls, "down:"+m.name)
	if m.failDwn {
		return fmt.Errorf("boom down %s", m.name)
	}
	return nil
}

func abcChain(calls *[]string) []Migration {
	a := recordingMigration{name: "A", rev: rev("a", ""), calls: calls}
	b := recordingMigration{name: "B", rev: rev("b", "a"), calls: calls}
	c := recordingMigration{name: "C", rev: rev("c", "b"), calls: calls}
	return []Migration{a, b, c}
}

func newTestMigrator(migrations []Migration) (*Migrator, *fakeLedger) {
	fl := newFakeLedger()
	ctx := NewContext(&fakeBackend{ledger: fl})
	return New(ctx, migrations), fl
}

func TestScenarioS1InitThenUp(t *testing.T) {
	var calls []string
	m, fl := newTestMigrator(abcChain(&calls))

	if err := m.Up(context.Background(), nil, nil); err != nil {
		t.Fatalf("Up: %v", err)
	}

	wantCalls := []string{"up:A", "up:B", "up:C"}
	if !equalStrings(calls, wantCalls) {
		t.Errorf("calls = %v, want %v", calls, wantCalls)
	}
	wantNames := map[string]bool{"A": true, "B": true, "C": true}
	if !sameSet(fl.names(), wantNames) {
		t.Errorf("ledger names = %v, want %v", fl.names(), wantNames)
	}
}

func TestScenarioS2PartialUp(t *testing.T) {
	var calls []string
	m, fl := newTestMigrator(abcChain(&calls))

	to := "b"
	if err := m.Up(context.Background(), nil, &to); err != nil {
		t.Fatalf("Up: %v", err)
	}

	wantCalls := []string{"up:A", "up:B"}
	if !equalStrings(calls, wantCalls) {
		t.Errorf("calls = %v, want %v", calls, wantCalls)
	}
	wantNames := map[string]bool{"A": true, "B": true}
	if !sameSet(fl.names(), wantNames) {
		t.Errorf("ledger names = %v, want %v", fl.names(), wantNames)
	}
}

func TestScenarioS3DownToTarget(t *testing.T) {
	var calls []string
	m, fl := newTestMigrator(abcChain(&calls))
	if err := m.Up(context.Background(), nil, nil); err != nil {
		t.Fatalf("Up: %v", err)
	}
	calls = nil

	to := "a"
	if err := m.Down(context.Background(), &to); err != nil {
		t.Fatalf("Down: %v", err)
	}

	wantCalls := []string{"down:C", "down:B"}
	if !equalStrings(calls, wantCalls) {
		t.Errorf("calls = %v, want %v", calls, wantCalls)
	}
	wantNames := map[string]bool{"A": true}
	if !sameSet(fl.names(), wantNames) {
		t.Errorf("ledger names = %v, want %v", fl.names(), wantNames)
	}
}

func TestScenarioS4Refresh(t *testing.T) {
	var calls []string
	m, fl := newTestMigrator(abcChain(&calls))
	if err := m.Up(context.Background(), nil, nil); err != nil {
		t.Fatalf("Up: %v", err)
	}
	calls = nil

	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	wantCalls := []string{"down:C", "down:B", "down:A", "up:A", "up:B", "up:C"}
	if !equalStrings(calls, wantCalls) {
		t.Errorf("calls = %v, want %v", calls, wantCalls)
	}
	wantNames := map[string]bool{"A": true, "B": true, "C": true}
	if !sameSet(fl.names(), wantNames) {
		t.Errorf("ledger names = %v, want %v", fl.names(), wantNames)
	}
}

func TestScenarioS5StatusOrdering(t *testing.T) {
	var calls []string
	m, fl := newTestMigrator(abcChain(&calls))
	fl.records["A"] = uuid.New()
	fl.records["B"] = uuid.New()

	lines, err := m.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	want := []StatusLine{
		{DisplayName: "A", Status: StatusApplied},
		{DisplayName: "B", Status: StatusApplied},
		{DisplayName: "C", Status: StatusPending},
	}
	if len(lines) != len(want) {
		t.Fatalf("Status lines = %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %+v, want %+v", i, lines[i], want[i])
		}
	}
}

func TestScenarioS6MissingHead(t *testing.T) {
	a := recordingMigration{name: "A", rev: rev("a", "c")}
	b := recordingMigration{name: "B", rev: rev("b", "a")}
	c := recordingMigration{name: "C", rev: rev("c", "b")}
	calls := []string{}
	a.calls, b.calls, c.calls = &calls, &calls, &calls

	m, _ := newTestMigrator([]Migration{a, b, c})
	err := m.Up(context.Background(), nil, nil)
	if err == nil {
		t.Fatal("expected Up to fail on a cyclic declaration")
	}
}

func TestUpWrapsRetrieveErrorPreservingSentinel(t *testing.T) {
	var calls []string
	m, fl := newTestMigrator(abcChain(&calls))
	fl.retrieveErr = DuplicateLedgerNameErrorf("duplicate ledger entry for %q", "A")

	err := m.Up(context.Background(), nil, nil)
	if err == nil {
		t.Fatal("expected Up to fail when Retrieve fails")
	}
	if !errors.Is(err, ErrDuplicateLedgerName) {
		t.Errorf("Up's wrapped error should still match ErrDuplicateLedgerName, got %v", err)
	}
}

func TestUpFailureLeavesPartialLedgerState(t *testing.T) {
	// A's up succeeds and is recorded; B's up fails. Per-migration
	// reconciliation means A stays recorded and B is not, instead of the
	// whole leg's ledger write being skipped.
	var calls []string
	a := recordingMigration{name: "A", rev: rev("a", ""), calls: &calls}
	b := recordingMigration{name: "B", rev: rev("b", "a"), calls: &calls, failUp: true}
	c := recordingMigration{name: "C", rev: rev("c", "b"), calls: &calls}

	m, fl := newTestMigrator([]Migration{a, b, c})
	err := m.Up(context.Background(), nil, nil)
	if err == nil {
		t.Fatal("expected Up to fail")
	}

	wantCalls := []string{"up:A", "up:B"}
	if !equalStrings(calls, wantCalls) {
		t.Errorf("calls = %v, want %v", calls, wantCalls)
	}
	if !sameSet(fl.names(), map[string]bool{"A": true}) {
		t.Errorf("ledger names = %v, want {A}", fl.names())
	}
}

func sameSet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
