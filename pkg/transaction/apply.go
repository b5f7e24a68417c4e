package transaction

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/glorpus-work/hif/internal/logger"
	"github.com/glorpus-work/hif/pkg/fsutil"
	"github.com/glorpus-work/hif/pkg/hooks"
	"github.com/glorpus-work/hif/pkg/model"
	"github.com/glorpus-work/hif/pkg/rpmdb"
)

// install extracts the package, moves its files into the root and records
// it. Until the database commit every change can be undone.
func (e *Executor) install(ctx context.Context, a model.Action, file string) error {
	staging, err := os.MkdirTemp(e.workDir, "hif-stage-*")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(staging) }()

	contents, err := e.extractor.Extract(ctx, file, staging)
	if err != nil {
		return err
	}

	hc := e.hookContext(a, staging)
	if err := e.hooks.Run(ctx, contents.Hooks.Get(hooks.PreInstall), hc); err != nil {
		return err
	}

	var oldFiles []string
	if a.Replaces != nil {
		if oldFiles, err = e.db.Files(ctx, a.Replaces.NEVRA()); err != nil {
			return err
		}
	}

	tx, err := newFileTx(e.root, e.workDir)
	if err != nil {
		return err
	}
	for _, f := range contents.Files {
		if err := tx.put(filepath.Join(contents.Root, filepath.FromSlash(f)), f); err != nil {
			tx.rollback()
			return err
		}
	}
	for _, f := range oldFiles {
		if slices.Contains(contents.Files, f) {
			continue
		}
		if err := tx.remove(f); err != nil {
			tx.rollback()
			return err
		}
	}

	rec := rpmdb.Record{
		Package:    a.Package,
		Reason:     a.Reason,
		Files:      contents.Files,
		Scriptlets: contents.Hooks.Strings(),
	}
	if err := e.db.Apply(ctx, rec, a.Replaces); err != nil {
		tx.rollback()
		return err
	}
	tx.commit()

	if err := e.hooks.Run(ctx, contents.Hooks.Get(hooks.PostInstall), hc); err != nil {
		logger.Warn("post-install hook failed", logger.Fields{"package": a.Package.NEVRA(), "error": err})
	}
	return nil
}

// remove deletes the files owned only by the package and drops its record.
func (e *Executor) remove(ctx context.Context, a model.Action) error {
	p := a.Package
	nevra := p.NEVRA()
	stored, err := e.db.Scriptlets(ctx, nevra)
	if err != nil {
		return err
	}
	scripts := hooks.FromStrings(stored)
	files, err := e.db.Files(ctx, nevra)
	if err != nil {
		return err
	}

	hc := e.hookContext(a, "")
	if err := e.hooks.Run(ctx, scripts.Get(hooks.PreRemove), hc); err != nil {
		return err
	}

	tx, err := newFileTx(e.root, e.workDir)
	if err != nil {
		return err
	}
	for _, f := range files {
		owners, err := e.db.Owners(ctx, f)
		if err != nil {
			tx.rollback()
			return err
		}
		if slices.ContainsFunc(owners, func(o string) bool { return o != nevra }) {
			continue
		}
		if err := tx.remove(f); err != nil {
			tx.rollback()
			return err
		}
	}
	if err := e.db.Remove(ctx, p); err != nil {
		tx.rollback()
		return err
	}
	tx.commit()

	if err := e.hooks.Run(ctx, scripts.Get(hooks.PostRemove), hc); err != nil {
		logger.Warn("post-remove hook failed", logger.Fields{"package": nevra, "error": err})
	}
	return nil
}

type backup struct {
	target string
	saved  string // empty when target did not exist
}

// fileTx changes files below root and can restore what it touched.
type fileTx struct {
	root    string
	dir     string
	backups []backup
	removed []string
}

func newFileTx(root, workDir string) (*fileTx, error) {
	dir, err := os.MkdirTemp(workDir, "hif-backup-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &fileTx{root: root, dir: dir}, nil
}

func (tx *fileTx) target(installPath string) string {
	return filepath.Join(tx.root, filepath.FromSlash(installPath))
}

// save moves an existing target aside and records it for rollback.
func (tx *fileTx) save(target string) error {
	b := backup{target: target}
	if _, err := os.Lstat(target); err == nil {
		b.saved = filepath.Join(tx.dir, strconv.Itoa(len(tx.backups)))
		if err := fsutil.Move(target, b.saved); err != nil {
			return fmt.Errorf("failed to back up %s: %w", target, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", target, err)
	}
	tx.backups = append(tx.backups, b)
	return nil
}

func (tx *fileTx) put(src, installPath string) error {
	target := tx.target(installPath)
	if err := tx.save(target); err != nil {
		return err
	}
	if err := fsutil.Move(src, target); err != nil {
		return fmt.Errorf("failed to install %s: %w", installPath, err)
	}
	return nil
}

func (tx *fileTx) remove(installPath string) error {
	target := tx.target(installPath)
	if err := tx.save(target); err != nil {
		return err
	}
	tx.removed = append(tx.removed, filepath.Dir(target))
	return nil
}

// rollback restores every saved file in reverse order.
func (tx *fileTx) rollback() {
	for i := len(tx.backups) - 1; i >= 0; i-- {
		b := tx.backups[i]
		_ = os.RemoveAll(b.target)
		if b.saved == "" {
			fsutil.RemoveEmptyParents(filepath.Dir(b.target), tx.root)
			continue
		}
		if err := fsutil.Move(b.saved, b.target); err != nil {
			logger.Error("Cannot restore file", logger.Fields{"path": b.target, "error": err})
		}
	}
	_ = os.RemoveAll(tx.dir)
}

// commit drops the backups and prunes directories emptied by removals.
func (tx *fileTx) commit() {
	_ = os.RemoveAll(tx.dir)
	for _, dir := range tx.removed {
		fsutil.RemoveEmptyParents(dir, tx.root)
	}
}
