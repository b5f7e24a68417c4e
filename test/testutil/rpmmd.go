package testutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/glorpus-work/hif/pkg/model"
	"github.com/glorpus-work/hif/pkg/repository"
)

type xmlMetadata struct {
	XMLName  xml.Name `xml:"metadata"`
	Xmlns    string   `xml:"xmlns,attr"`
	XmlnsRpm string   `xml:"xmlns:rpm,attr"`
	Count    int      `xml:"packages,attr"`
	Packages []xmlPkg `xml:"package"`
}

type xmlPkg struct {
	Type     string      `xml:"type,attr"`
	Name     string      `xml:"name"`
	Arch     string      `xml:"arch"`
	Version  xmlVersion  `xml:"version"`
	Checksum xmlChecksum `xml:"checksum"`
	Summary  string      `xml:"summary"`
	Size     xmlSize     `xml:"size"`
	Location xmlHref     `xml:"location"`
	Format   xmlFormat   `xml:"format"`
}

type xmlVersion struct {
	Epoch string `xml:"epoch,attr"`
	Ver   string `xml:"ver,attr"`
	Rel   string `xml:"rel,attr"`
}

type xmlChecksum struct {
	Type  string `xml:"type,attr"`
	Pkgid string `xml:"pkgid,attr,omitempty"`
	Value string `xml:",chardata"`
}

type xmlSize struct {
	Package int64 `xml:"package,attr"`
}

type xmlHref struct {
	Href string `xml:"href,attr"`
}

type xmlFormat struct {
	Provides  *xmlEntries `xml:"rpm:provides,omitempty"`
	Requires  *xmlEntries `xml:"rpm:requires,omitempty"`
	Conflicts *xmlEntries `xml:"rpm:conflicts,omitempty"`
	Files     []string    `xml:"file"`
}

type xmlEntries struct {
	Entries []xmlEntry `xml:"rpm:entry"`
}

type xmlEntry struct {
	Name  string `xml:"name,attr"`
	Flags string `xml:"flags,attr,omitempty"`
	Epoch string `xml:"epoch,attr,omitempty"`
	Ver   string `xml:"ver,attr,omitempty"`
	Rel   string `xml:"rel,attr,omitempty"`
}

type xmlRepomd struct {
	XMLName  xml.Name        `xml:"repomd"`
	Xmlns    string          `xml:"xmlns,attr"`
	Revision string          `xml:"revision"`
	Data     []xmlRepomdData `xml:"data"`
}

type xmlRepomdData struct {
	Type     string      `xml:"type,attr"`
	Checksum xmlChecksum `xml:"checksum"`
	Location xmlHref     `xml:"location"`
}

// WriteRPMMD writes an rpm-md repository for pkgs below root. compression
// is one of "", "gz", "xz" or "zst".
func WriteRPMMD(t *testing.T, root, revision string, pkgs []*model.Package, compression string) {
	t.Helper()

	meta := xmlMetadata{
		Xmlns:    "http://linux.duke.edu/metadata/common",
		XmlnsRpm: "http://linux.duke.edu/metadata/rpm",
		Count:    len(pkgs),
	}
	for _, p := range pkgs {
		meta.Packages = append(meta.Packages, xmlPkg{
			Type:     "rpm",
			Name:     p.Name,
			Arch:     p.Arch,
			Version:  xmlVersion{Epoch: strconv.Itoa(p.EVR.Epoch), Ver: p.EVR.Version, Rel: p.EVR.Release},
			Checksum: xmlChecksum{Type: checksumType(p.Checksum), Pkgid: "YES", Value: p.Checksum.Value},
			Summary:  p.Summary,
			Size:     xmlSize{Package: p.Size},
			Location: xmlHref{Href: p.Location},
			Format: xmlFormat{
				Provides:  entries(p.Provides),
				Requires:  entries(append([]model.Reldep{{Name: "rpmlib(CompressedFileNames)"}}, p.Requires...)),
				Conflicts: entries(p.Conflicts),
				Files:     p.Files,
			},
		})
	}
	primary, err := xml.MarshalIndent(meta, "", "  ")
	if err != nil {
		t.Fatalf("marshal primary: %v", err)
	}
	primary = append([]byte(xml.Header), primary...)

	name := "primary.xml"
	if compression != "" {
		name += "." + compression
	}
	data := compress(t, primary, compression)
	writeFile(t, filepath.Join(root, "repodata", name), data)

	sum := sha256.Sum256(data)
	md := xmlRepomd{
		Xmlns:    "http://linux.duke.edu/metadata/repo",
		Revision: revision,
		Data: []xmlRepomdData{{
			Type:     "primary",
			Checksum: xmlChecksum{Type: "sha256", Value: hex.EncodeToString(sum[:])},
			Location: xmlHref{Href: "repodata/" + name},
		}},
	}
	out, err := xml.MarshalIndent(md, "", "  ")
	if err != nil {
		t.Fatalf("marshal repomd: %v", err)
	}
	writeFile(t, filepath.Join(root, "repodata", "repomd.xml"), append([]byte(xml.Header), out...))
}

// WriteJSONRepo writes an index.json repository for pkgs below root.
func WriteJSONRepo(t *testing.T, root, revision string, pkgs []*model.Package) {
	t.Helper()
	if err := repository.WriteIndex(filepath.Join(root, repository.IndexFile), revision, pkgs); err != nil {
		t.Fatalf("write index: %v", err)
	}
}

func entries(deps []model.Reldep) *xmlEntries {
	if len(deps) == 0 {
		return nil
	}
	out := &xmlEntries{}
	for _, d := range deps {
		e := xmlEntry{Name: d.Name}
		if d.Versioned() {
			e.Flags = flagName(d.Flags)
			e.Epoch = strconv.Itoa(d.EVR.Epoch)
			e.Ver = d.EVR.Version
			e.Rel = d.EVR.Release
		}
		out.Entries = append(out.Entries, e)
	}
	return out
}

func flagName(f model.Flags) string {
	switch f {
	case model.FlagLT:
		return "LT"
	case model.FlagLE:
		return "LE"
	case model.FlagEQ:
		return "EQ"
	case model.FlagGE:
		return "GE"
	case model.FlagGT:
		return "GT"
	}
	return ""
}

func checksumType(c model.Checksum) string {
	if c.Type == "" {
		return "sha256"
	}
	return c.Type
}

func compress(t *testing.T, data []byte, compression string) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.WriteCloser
	var err error
	switch compression {
	case "":
		return data
	case "gz":
		w = gzip.NewWriter(&buf)
	case "xz":
		w, err = xz.NewWriter(&buf)
	case "zst":
		w, err = zstd.NewWriter(&buf)
	default:
		t.Fatalf("unknown compression %q", compression)
	}
	if err != nil {
		t.Fatalf("%s writer: %v", compression, err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("compress: %v", err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
