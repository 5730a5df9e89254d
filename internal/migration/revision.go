package migration

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// idPattern matches the charset allowed for revision_id and
// down_revision_id: [A-Za-z0-9_-]+.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidRevisionID reports whether id is non-empty and matches the
// required charset.
func ValidRevisionID(id string) bool {
	return id != "" && idPattern.MatchString(id)
}

// Revision is the compile-time metadata attached to a user migration.
// It is immutable for the lifetime of the process once constructed.
type Revision struct {
	RevisionID     string
	DownRevisionID *string // nil marks the root ("none" in spec terms)
	Date           time.Time
	Message        string
	DisplayName    string
}

// Meta is the subset of the migration contract describing identity.
type Meta interface {
	Name() string
	Revision() Revision
}

// Migration is what a user package implements per declared migration.
// The driver calls Up only on a revision the ledger records as pending
// and Down only on one it records as applied, but individual migrations
// should not assume the backend is in a pristine state beyond what the
// ledger guarantees.
type Migration interface {
	Meta
	Up(ctx context.Context, mctx *Context) error
	Down(ctx context.Context, mctx *Context) error
}

// FileStem returns the file name without extension. A hand-written
// migration can call this with runtime.Caller(0) to derive Name() from
// its own file name; generated migrations embed their file stem as a
// string literal instead.
func FileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
