package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"sort"
	"strings"

	connector "github.com/goliatone/go-crm-connector"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	migrationsPath = "data/sql/migrations"
)

type FilesystemSpec struct {
	Dialect string
	Path    string
	FS      fs.FS
}

type Registration struct {
	SourceLabel       string
	ValidationTargets []string
	Filesystems       []FilesystemSpec
}

type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

// WithValidationTargets limits registration to the given dialects.
func WithValidationTargets(targets ...string) Option {
	return func(r *Registration) {
		next := dedupe(targets)
		if len(next) > 0 {
			r.ValidationTargets = next
		}
	}
}

// WithFilesystems replaces the embedded migration tree, mainly for tests.
func WithFilesystems(filesystems ...FilesystemSpec) Option {
	return func(r *Registration) {
		copied := make([]FilesystemSpec, 0, len(filesystems))
		for _, fsys := range filesystems {
			dialect := strings.TrimSpace(strings.ToLower(fsys.Dialect))
			if dialect == "" || fsys.FS == nil {
				continue
			}
			copied = append(copied, FilesystemSpec{Dialect: dialect, Path: fsys.Path, FS: fsys.FS})
		}
		if len(copied) > 0 {
			r.Filesystems = copied
		}
	}
}

// Filesystems returns the postgres tree and its sqlite alternative. Each
// must contain at least one *.up.sql file.
func Filesystems() ([]FilesystemSpec, error) {
	base, err := fs.Sub(connector.GetMigrationsFS(), migrationsPath)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve %s: %w", migrationsPath, err)
	}
	sqliteFS, err := fs.Sub(base, DialectSQLite)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite filesystem: %w", err)
	}

	filesystems := []FilesystemSpec{
		{Dialect: DialectPostgres, Path: migrationsPath, FS: base},
		{Dialect: DialectSQLite, Path: migrationsPath + "/" + DialectSQLite, FS: sqliteFS},
	}
	for _, fsys := range filesystems {
		names, err := UpMigrations(fsys.FS)
		if err != nil {
			return nil, fmt.Errorf("migrations: %s %s: %w", fsys.Dialect, fsys.Path, err)
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("migrations: %s filesystem %q has no *.up.sql files", fsys.Dialect, fsys.Path)
		}
	}
	return filesystems, nil
}

// UpMigrations lists the *.up.sql files of a tree in apply order.
func UpMigrations(fsys fs.FS) ([]string, error) {
	matches, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel:       "go-crm-connector",
		ValidationTargets: []string{DialectPostgres, DialectSQLite},
	}
	if registerFn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}

	filesystems, err := Filesystems()
	if err != nil {
		return reg, err
	}
	reg.Filesystems = filesystems
	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}

	for _, fsys := range reg.Filesystems {
		if !slices.Contains(reg.ValidationTargets, fsys.Dialect) {
			continue
		}
		if err := registerFn(ctx, fsys.Dialect, reg.SourceLabel, fsys.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s (%s): %w", fsys.Dialect, fsys.Path, err)
		}
	}
	return reg, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(strings.ToLower(value))
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
