package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/glorpus-work/hif/pkg/errors"
	"github.com/glorpus-work/hif/pkg/fsutil"
	"github.com/glorpus-work/hif/pkg/model"
)

// solvVersion is bumped whenever the cached package layout changes; caches
// of another version are rebuilt from metadata.
const solvVersion = 1

type solvFile struct {
	Version  int              `json:"version"`
	Repo     string           `json:"repo"`
	Revision string           `json:"revision,omitempty"`
	Packages []*model.Package `json:"packages"`
}

func writeSolv(path, repoID, revision string, pkgs []*model.Package) error {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(solvFile{
		Version:  solvVersion,
		Repo:     repoID,
		Revision: revision,
		Packages: pkgs,
	}); err != nil {
		_ = zw.Close()
		return errors.Wrap(err, "encode solver cache")
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "compress solver cache")
	}
	return fsutil.WriteFileAtomic(path, buf.Bytes(), fsutil.FileModeDefault)
}

func readSolv(path, repoID string) ([]*model.Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "solver cache")
	}
	defer func() { _ = zr.Close() }()

	var sf solvFile
	if err := json.NewDecoder(zr).Decode(&sf); err != nil {
		return nil, errors.Wrap(err, "decode solver cache")
	}
	if sf.Version != solvVersion || sf.Repo != repoID {
		return nil, fmt.Errorf("solver cache %s is for %s version %d", path, sf.Repo, sf.Version)
	}
	for _, p := range sf.Packages {
		p.Repo = repoID
	}
	return sf.Packages, nil
}
