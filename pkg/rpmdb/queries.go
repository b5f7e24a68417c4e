package rpmdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/glorpus-work/hif/pkg/errors"
	"github.com/glorpus-work/hif/pkg/model"
)

// Dependency kinds stored in the deps table.
const (
	depRequires  = "requires"
	depProvides  = "provides"
	depConflicts = "conflicts"
)

// Record is everything stored for one installed build.
type Record struct {
	Package *model.Package
	Reason  model.InstallationReason
	// Files are the paths the build put on disk, relative to the install root.
	Files []string
	// Scriptlets are kept for the hooks that run when the build is removed.
	Scriptlets map[string]string
}

const packageColumns = `nevra, name, epoch, version, rel, arch, repo, summary, size_bytes, checksum_type, checksum, location, reason`

// Installed returns every installed package with its dependencies and files,
// ordered by NEVRA.
func (d *DB) Installed(ctx context.Context) ([]*model.Package, error) {
	return d.query(ctx, `SELECT `+packageColumns+` FROM packages ORDER BY nevra`)
}

// Find returns the installed builds named name.
func (d *DB) Find(ctx context.Context, name string) ([]*model.Package, error) {
	return d.query(ctx, `SELECT `+packageColumns+` FROM packages WHERE name = ? ORDER BY nevra`, name)
}

func (d *DB) query(ctx context.Context, q string, args ...any) ([]*model.Package, error) {
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrapErr(err, "failed to list packages")
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Package
	byNEVRA := map[string]*model.Package{}
	for rows.Next() {
		var p model.Package
		var nevra, reason string
		var summary, ckType, ck, location sql.NullString
		var size sql.NullInt64
		if err := rows.Scan(&nevra, &p.Name, &p.EVR.Epoch, &p.EVR.Version, &p.EVR.Release, &p.Arch, &p.Repo,
			&summary, &size, &ckType, &ck, &location, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan package: %w", err)
		}
		p.Summary = summary.String
		p.Size = size.Int64
		p.Checksum = model.Checksum{Type: ckType.String, Value: ck.String}
		p.Location = location.String
		p.Reason = model.InstallationReason(reason)
		p.Installed = true
		out = append(out, &p)
		byNEVRA[nevra] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate packages: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}
	if err := d.loadDeps(ctx, byNEVRA); err != nil {
		return nil, err
	}
	if err := d.loadFiles(ctx, byNEVRA); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *DB) loadDeps(ctx context.Context, byNEVRA map[string]*model.Package) error {
	rows, err := d.db.QueryContext(ctx, `
		SELECT nevra, kind, name, flags, epoch, version, rel
		FROM deps
		ORDER BY nevra, kind, position
	`)
	if err != nil {
		return wrapErr(err, "failed to list dependencies")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var nevra, kind string
		var dep model.Reldep
		var flags int
		if err := rows.Scan(&nevra, &kind, &dep.Name, &flags, &dep.EVR.Epoch, &dep.EVR.Version, &dep.EVR.Release); err != nil {
			return fmt.Errorf("failed to scan dependency: %w", err)
		}
		p, ok := byNEVRA[nevra]
		if !ok {
			continue
		}
		dep.Flags = model.Flags(flags)
		switch kind {
		case depRequires:
			p.Requires = append(p.Requires, dep)
		case depProvides:
			p.Provides = append(p.Provides, dep)
		case depConflicts:
			p.Conflicts = append(p.Conflicts, dep)
		}
	}
	return rows.Err()
}

func (d *DB) loadFiles(ctx context.Context, byNEVRA map[string]*model.Package) error {
	rows, err := d.db.QueryContext(ctx, `SELECT nevra, path FROM files ORDER BY nevra, path`)
	if err != nil {
		return wrapErr(err, "failed to list files")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var nevra, path string
		if err := rows.Scan(&nevra, &path); err != nil {
			return fmt.Errorf("failed to scan file: %w", err)
		}
		if p, ok := byNEVRA[nevra]; ok {
			p.Files = append(p.Files, path)
		}
	}
	return rows.Err()
}

// Files returns the paths owned by the installed build nevra.
func (d *DB) Files(ctx context.Context, nevra string) ([]string, error) {
	return d.strings(ctx, `SELECT path FROM files WHERE nevra = ? ORDER BY path`, nevra)
}

// Owners returns the NEVRAs of installed builds owning path.
func (d *DB) Owners(ctx context.Context, path string) ([]string, error) {
	return d.strings(ctx, `SELECT nevra FROM files WHERE path = ? ORDER BY nevra`, path)
}

func (d *DB) strings(ctx context.Context, q string, arg string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, wrapErr(err, "failed to query %s", arg)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Scriptlets returns the stored scriptlets of nevra by hook name.
func (d *DB) Scriptlets(ctx context.Context, nevra string) (map[string]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT hook, body FROM scriptlets WHERE nevra = ?`, nevra)
	if err != nil {
		return nil, wrapErr(err, "failed to query scriptlets of %s", nevra)
	}
	defer func() { _ = rows.Close() }()

	out := map[string]string{}
	for rows.Next() {
		var hook, body string
		if err := rows.Scan(&hook, &body); err != nil {
			return nil, fmt.Errorf("failed to scan scriptlet: %w", err)
		}
		out[hook] = body
	}
	return out, rows.Err()
}

// Apply records rec as installed and, in the same transaction, drops the
// build it replaces. Recording a NEVRA that is already present overwrites it.
func (d *DB) Apply(ctx context.Context, rec Record, replaces *model.Package) error {
	p := rec.Package
	nevra := p.NEVRA()
	reason := rec.Reason
	if reason == "" {
		reason = model.ReasonUser
	}
	return d.inTx(ctx, func(tx *sql.Tx) error {
		if replaces != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM packages WHERE nevra = ?`, replaces.NEVRA()); err != nil {
				return wrapErr(err, "failed to drop %s", replaces.NEVRA())
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM packages WHERE nevra = ?`, nevra); err != nil {
			return wrapErr(err, "failed to drop %s", nevra)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO packages (`+packageColumns+`, installed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			nevra, p.Name, p.EVR.Epoch, p.EVR.Version, p.EVR.Release, p.Arch, p.Repo,
			p.Summary, p.Size, p.Checksum.Type, p.Checksum.Value, p.Location, string(reason),
			time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			return wrapErr(err, "failed to insert package %s", nevra)
		}

		for kind, deps := range map[string][]model.Reldep{
			depRequires:  p.Requires,
			depProvides:  p.Provides,
			depConflicts: p.Conflicts,
		} {
			for i, dep := range deps {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO deps (nevra, kind, position, name, flags, epoch, version, rel)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				`, nevra, kind, i, dep.Name, int(dep.Flags), dep.EVR.Epoch, dep.EVR.Version, dep.EVR.Release); err != nil {
					return wrapErr(err, "failed to insert dependency of %s", nevra)
				}
			}
		}

		files := rec.Files
		if files == nil {
			files = p.Files
		}
		for _, f := range files {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO files (nevra, path) VALUES (?, ?)`, nevra, f); err != nil {
				return wrapErr(err, "failed to insert file of %s", nevra)
			}
		}
		for hook, body := range rec.Scriptlets {
			if _, err := tx.ExecContext(ctx, `INSERT INTO scriptlets (nevra, hook, body) VALUES (?, ?, ?)`, nevra, hook, body); err != nil {
				return wrapErr(err, "failed to insert scriptlet of %s", nevra)
			}
		}
		return nil
	})
}

// Remove drops the installed build p.
func (d *DB) Remove(ctx context.Context, p *model.Package) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM packages WHERE nevra = ?`, p.NEVRA())
	if err != nil {
		return wrapErr(err, "failed to remove %s", p.NEVRA())
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("installed package %s: %w", p.NEVRA(), errors.ErrNotFound)
	}
	return nil
}

// Has reports whether the exact build is installed.
func (d *DB) Has(ctx context.Context, p *model.Package) (bool, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM packages WHERE nevra = ?`, p.NEVRA()).Scan(&n)
	if err != nil {
		return false, wrapErr(err, "failed to look up %s", p.NEVRA())
	}
	return n > 0, nil
}
