package repository

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/glorpus-work/hif/pkg/config"
	"github.com/glorpus-work/hif/pkg/download"
	"github.com/glorpus-work/hif/pkg/errors"
	"github.com/glorpus-work/hif/pkg/evr"
	"github.com/glorpus-work/hif/pkg/model"
	"github.com/glorpus-work/hif/pkg/platform"
	"github.com/glorpus-work/hif/pkg/state"
)

// Repository kinds, matching the configuration values.
const (
	KindRPMMD = config.KindRPMMD
	KindJSON  = config.KindJSON
)

// RepomdPath is the location of the rpm-md index inside a repository.
const RepomdPath = "repodata/repomd.xml"

type repomd struct {
	XMLName  xml.Name     `xml:"repomd"`
	Revision string       `xml:"revision"`
	Data     []repomdData `xml:"data"`
}

type repomdData struct {
	Type     string `xml:"type,attr"`
	Checksum struct {
		Type  string `xml:"type,attr"`
		Value string `xml:",chardata"`
	} `xml:"checksum"`
	Location struct {
		Href string `xml:"href,attr"`
	} `xml:"location"`
}

type primaryMetadata struct {
	XMLName  xml.Name         `xml:"metadata"`
	Packages []primaryPackage `xml:"package"`
}

type primaryPackage struct {
	Type    string `xml:"type,attr"`
	Name    string `xml:"name"`
	Arch    string `xml:"arch"`
	Version struct {
		Epoch string `xml:"epoch,attr"`
		Ver   string `xml:"ver,attr"`
		Rel   string `xml:"rel,attr"`
	} `xml:"version"`
	Checksum struct {
		Type  string `xml:"type,attr"`
		Value string `xml:",chardata"`
	} `xml:"checksum"`
	Summary string `xml:"summary"`
	Size    struct {
		Package int64 `xml:"package,attr"`
	} `xml:"size"`
	Location struct {
		Href string `xml:"href,attr"`
	} `xml:"location"`
	Format struct {
		Provides  []rpmEntry `xml:"provides>entry"`
		Requires  []rpmEntry `xml:"requires>entry"`
		Conflicts []rpmEntry `xml:"conflicts>entry"`
		Files     []string   `xml:"file"`
	} `xml:"format"`
}

type rpmEntry struct {
	Name  string `xml:"name,attr"`
	Flags string `xml:"flags,attr"`
	Epoch string `xml:"epoch,attr"`
	Ver   string `xml:"ver,attr"`
	Rel   string `xml:"rel,attr"`
}

// RPMMD reads createrepo-style repositories: repodata/repomd.xml pointing at
// a primary file compressed with gzip, xz, zstd or not at all.
type RPMMD struct{}

// Marker implements Backend.
func (b *RPMMD) Marker() string {
	return RepomdPath
}

// Revision implements Backend.
func (b *RPMMD) Revision(p string) (string, error) {
	md, err := readRepomd(p)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(md.Revision), nil
}

// FetchData downloads the primary metadata and verifies it against the
// checksum published in repomd.xml.
func (b *RPMMD) FetchData(ctx context.Context, dl download.Manager, repo *Repository, dir string, st *state.State) error {
	md, err := readRepomd(filepath.Join(dir, filepath.FromSlash(RepomdPath)))
	if err != nil {
		return err
	}
	primary, err := md.primary()
	if err != nil {
		return err
	}
	_, err = dl.Fetch(ctx, download.Item{
		ID:           repo.ID + "-primary",
		URLs:         repo.URLsFor(primary.Location.Href),
		Checksum:     strings.TrimSpace(primary.Checksum.Value),
		ChecksumType: primary.Checksum.Type,
		Filename:     primary.Location.Href,
		Auth:         repo.Auth,
	}, download.Options{Dir: dir, State: st})
	return err
}

// Parse implements Backend.
func (b *RPMMD) Parse(dir string, repo *Repository) ([]*model.Package, error) {
	md, err := readRepomd(filepath.Join(dir, filepath.FromSlash(RepomdPath)))
	if err != nil {
		return nil, err
	}
	primary, err := md.primary()
	if err != nil {
		return nil, err
	}
	primaryPath := filepath.Join(dir, filepath.FromSlash(primary.Location.Href))
	f, err := os.Open(primaryPath)
	if err != nil {
		return nil, errors.Wrap(err, "open primary metadata")
	}
	defer func() { _ = f.Close() }()

	r, closeFn, err := decompress(f, primary.Location.Href)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var meta primaryMetadata
	if err := xml.NewDecoder(r).Decode(&meta); err != nil {
		return nil, fmt.Errorf("%w: primary metadata of %s: %w", errors.ErrMetadataFormat, repo.ID, err)
	}

	out := make([]*model.Package, 0, len(meta.Packages))
	for i := range meta.Packages {
		pp := &meta.Packages[i]
		if (pp.Type != "" && pp.Type != "rpm") || pp.Arch == platform.SourceArch {
			continue
		}
		pkg, err := pp.toPackage(repo.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", errors.ErrMetadataFormat, pp.Name, err)
		}
		out = append(out, pkg)
	}
	return out, nil
}

func readRepomd(p string) (*repomd, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, errors.Wrap(err, "open repomd.xml")
	}
	defer func() { _ = f.Close() }()
	var md repomd
	if err := xml.NewDecoder(f).Decode(&md); err != nil {
		return nil, fmt.Errorf("%w: repomd.xml: %w", errors.ErrMetadataFormat, err)
	}
	return &md, nil
}

func (md *repomd) primary() (*repomdData, error) {
	for i := range md.Data {
		if md.Data[i].Type == "primary" && md.Data[i].Location.Href != "" {
			return &md.Data[i], nil
		}
	}
	return nil, fmt.Errorf("%w: repomd.xml has no primary data", errors.ErrMetadataFormat)
}

func decompress(r io.Reader, name string) (io.Reader, func(), error) {
	switch path.Ext(name) {
	case ".gz":
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, errors.Wrap(err, "gzip")
		}
		return gr, func() { _ = gr.Close() }, nil
	case ".xz":
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, errors.Wrap(err, "xz")
		}
		return xr, func() {}, nil
	case ".zst":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, errors.Wrap(err, "zstd")
		}
		return zr, zr.Close, nil
	default:
		return r, func() {}, nil
	}
}

func (pp *primaryPackage) toPackage(repoID string) (*model.Package, error) {
	epoch, err := evr.ParseEpoch(pp.Version.Epoch)
	if err != nil {
		return nil, err
	}
	if pp.Name == "" || pp.Version.Ver == "" {
		return nil, fmt.Errorf("package without name or version")
	}
	pkg := &model.Package{
		Name:    pp.Name,
		EVR:     evr.EVR{Epoch: epoch, Version: pp.Version.Ver, Release: pp.Version.Rel},
		Arch:    pp.Arch,
		Repo:    repoID,
		Summary: strings.TrimSpace(pp.Summary),
		Size:    pp.Size.Package,
		Checksum: model.Checksum{
			Type:  pp.Checksum.Type,
			Value: strings.TrimSpace(pp.Checksum.Value),
		},
		Location: pp.Location.Href,
		Files:    pp.Format.Files,
	}
	if pkg.Provides, err = convertEntries(pp.Format.Provides); err != nil {
		return nil, err
	}
	if pkg.Requires, err = convertEntries(pp.Format.Requires); err != nil {
		return nil, err
	}
	if pkg.Conflicts, err = convertEntries(pp.Format.Conflicts); err != nil {
		return nil, err
	}
	return pkg, nil
}

func convertEntries(entries []rpmEntry) ([]model.Reldep, error) {
	var out []model.Reldep
	for _, e := range entries {
		if strings.HasPrefix(e.Name, "rpmlib(") {
			continue
		}
		dep := model.Reldep{Name: e.Name}
		if e.Flags != "" {
			flags, err := model.ParseFlags(e.Flags)
			if err != nil {
				return nil, err
			}
			epoch, err := evr.ParseEpoch(e.Epoch)
			if err != nil {
				return nil, err
			}
			dep.Flags = flags
			dep.EVR = evr.EVR{Epoch: epoch, Version: e.Ver, Release: e.Rel}
		}
		out = append(out, dep)
	}
	return out, nil
}
