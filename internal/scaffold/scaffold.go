// Package scaffold generates migration source files and keeps their
// registration manifest in sync. It favors text/template over AST
// rewriting for generating and re-reading those files.
package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"time"
	"unicode"

	"github.com/aqora-io/vectorctl/internal/migration"
	"golang.org/x/mod/module"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	filePrefix       = "version"
	manifestFileName = ".vectorctl-manifest"
	registrationFile = "migrations.go"
)

var nonIdent = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// ValidatePackagePath checks modulePath the way the scaffolded
// migration files' import of "<modulePath>/internal/migration" requires
// it to be well-formed, using the same module-path grammar the Go
// toolchain itself enforces.
func ValidatePackagePath(modulePath string) error {
	if err := module.CheckPath(modulePath); err != nil {
		return fmt.Errorf("scaffold: invalid module path %q: %w", modulePath, err)
	}
	return nil
}

// manifestEntry is one line of the sidecar manifest this package
// maintains alongside the generated Go sources, so that regenerating
// the registrations file never requires parsing Go source back out.
type manifestEntry struct {
	RevisionID string
	TypeName   string
	FileStem   string
}

// Init creates dir (if needed) and writes an empty registrations file
// for packageName, scaffolding a fresh migration package.
func Init(dir, modulePath, packageName string) error {
	if packageName == "" {
		packageName = "migrations"
	}
	if err := ValidatePackagePath(modulePath); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("scaffold: create %s: %w", dir, err)
	}
	if err := writeManifest(dir, nil); err != nil {
		return err
	}
	return regenerateRegistrations(dir, modulePath, packageName, nil)
}

// Generate renders a new migration source file in dir, chains it onto
// the most recently generated migration (by manifest order), and
// regenerates the registrations file. It returns the path to the new
// migration file. name drives the file stem/slug/type name; message is
// stored verbatim as the migration's Message field and may differ from
// name.
func Generate(dir, modulePath, packageName, name, message string, now time.Time) (string, error) {
	if packageName == "" {
		packageName = "migrations"
	}
	if err := ValidatePackagePath(modulePath); err != nil {
		return "", err
	}

	entries, err := readManifest(dir)
	if err != nil {
		return "", err
	}

	slug := slugify(name)
	if slug == "" {
		return "", fmt.Errorf("scaffold: migration name %q has no usable identifier characters", name)
	}
	fileStem := fmt.Sprintf("%s_%s_%s", filePrefix, now.UTC().Format("20060102_150405"), slug)
	revisionID := fileStem
	if !migration.ValidRevisionID(revisionID) {
		return "", fmt.Errorf("scaffold: generated revision id %q is not valid", revisionID)
	}

	var downRevisionID *string
	if len(entries) > 0 {
		last := entries[len(entries)-1].RevisionID
		downRevisionID = &last
	}

	typeName := "Migration" + pascalCase(strings.TrimPrefix(fileStem, filePrefix+"_"))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("scaffold: create %s: %w", dir, err)
	}

	migrationPath := filepath.Join(dir, fileStem+".go")
	if _, err := os.Stat(migrationPath); err == nil {
		return "", fmt.Errorf("scaffold: %s already exists", migrationPath)
	}

	if err := renderTemplate(migrationPath, "migration.go.tmpl", struct {
		Package               string
		ModulePath            string
		TypeName              string
		FileStem              string
		RevisionID            string
		DownRevisionIDLiteral string
		DateLiteral           string
		Message               string
		DisplayName           string
		GeneratedAt           string
	}{
		Package:               packageName,
		ModulePath:            modulePath,
		TypeName:              typeName,
		FileStem:              fileStem,
		RevisionID:            revisionID,
		DownRevisionIDLiteral: downRevisionLiteral(downRevisionID),
		DateLiteral:           dateLiteral(now),
		Message:               message,
		DisplayName:           slug,
		GeneratedAt:           now.UTC().Format(time.RFC3339),
	}); err != nil {
		return "", err
	}

	entries = append(entries, manifestEntry{RevisionID: revisionID, TypeName: typeName, FileStem: fileStem})
	if err := writeManifest(dir, entries); err != nil {
		return "", err
	}
	if err := regenerateRegistrations(dir, modulePath, packageName, entries); err != nil {
		return "", err
	}

	return migrationPath, nil
}

func regenerateRegistrations(dir, modulePath, packageName string, entries []manifestEntry) error {
	return renderTemplate(filepath.Join(dir, registrationFile), "registrations.go.tmpl", struct {
		Package    string
		ModulePath string
		Entries    []manifestEntry
	}{
		Package:    packageName,
		ModulePath: modulePath,
		Entries:    entries,
	})
}

func renderTemplate(outPath, tmplName string, data any) error {
	tmpl, err := template.ParseFS(templateFS, "templates/"+tmplName)
	if err != nil {
		return fmt.Errorf("scaffold: parse template %s: %w", tmplName, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("scaffold: render template %s: %w", tmplName, err)
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("scaffold: write %s: %w", outPath, err)
	}
	return nil
}

// readManifest loads the sidecar manifest tracking generated migrations
// in declaration order. A missing manifest is treated as empty, so a
// directory hand-populated before scaffold.Init existed still works.
func readManifest(dir string) ([]manifestEntry, error) {
	path := filepath.Join(dir, manifestFileName)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scaffold: read manifest %s: %w", path, err)
	}

	var entries []manifestEntry
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		if line == "" {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) != 3 {
			return nil, fmt.Errorf("scaffold: malformed manifest line %q", line)
		}
		entries = append(entries, manifestEntry{RevisionID: parts[0], TypeName: parts[1], FileStem: parts[2]})
	}
	return entries, nil
}

func writeManifest(dir string, entries []manifestEntry) error {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s|%s|%s\n", e.RevisionID, e.TypeName, e.FileStem)
	}
	path := filepath.Join(dir, manifestFileName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("scaffold: write manifest %s: %w", path, err)
	}
	return nil
}

func downRevisionLiteral(id *string) string {
	if id == nil {
		return "nil"
	}
	return fmt.Sprintf("strPtr(%q)", *id)
}

func dateLiteral(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf(
		"time.Date(%d, %d, %d, %d, %d, %d, %d, time.UTC)",
		u.Year(), int(u.Month()), u.Day(), u.Hour(), u.Minute(), u.Second(), u.Nanosecond(),
	)
}

// slugify lowercases name and collapses runs of non-alphanumeric
// characters into single underscores, matching the identifier grammar
// migration.ValidRevisionID enforces.
func slugify(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	cleaned := nonIdent.ReplaceAllString(lowered, "_")
	return strings.Trim(cleaned, "_")
}

// pascalCase turns a snake_case/kebab-case slug into a Go exported
// identifier suffix, e.g. "20250801_142233_add_index" -> the digits and
// words title-cased and concatenated.
func pascalCase(s string) string {
	var b strings.Builder
	nextUpper := true
	for _, r := range s {
		if r == '_' || r == '-' {
			nextUpper = true
			continue
		}
		if nextUpper {
			b.WriteRune(unicode.ToUpper(r))
			nextUpper = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
