package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"

	rpmutils "github.com/sassoftware/go-rpmutils"

	"github.com/glorpus-work/hif/pkg/errors"
	"github.com/glorpus-work/hif/pkg/evr"
)

var rpmMagic = []byte{0xed, 0xab, 0xee, 0xdb}

// Format is the container a package file uses.
type Format int

const (
	// FormatArchive is a compressed tarball with meta/ and data/.
	FormatArchive Format = iota
	// FormatRPM is an rpm lead, header and cpio payload.
	FormatRPM
)

func (f Format) String() string {
	if f == FormatRPM {
		return "rpm"
	}
	return "archive"
}

// Detect sniffs the package format from the file's leading bytes.
func Detect(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open package %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	lead := make([]byte, len(rpmMagic))
	if _, err := io.ReadFull(f, lead); err != nil {
		return FormatArchive, nil
	}
	if bytes.Equal(lead, rpmMagic) {
		return FormatRPM, nil
	}
	return FormatArchive, nil
}

func openRPM(path string) (*rpmutils.Rpm, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open package %s: %w", path, err)
	}
	rpm, err := rpmutils.ReadRpm(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, errors.Wrapf(errors.ErrValidation, "failed to read rpm %s: %v", path, err)
	}
	return rpm, f, nil
}

func rpmManifest(rpm *rpmutils.Rpm) (*Manifest, error) {
	nevra, err := rpm.Header.GetNEVRA()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrValidation, "rpm header: %v", err)
	}
	epoch, err := evr.ParseEpoch(nevra.Epoch)
	if err != nil {
		return nil, err
	}
	m := &Manifest{
		Name:    nevra.Name,
		Epoch:   epoch,
		Version: nevra.Version,
		Release: nevra.Release,
		Arch:    nevra.Arch,
		Summary: stringTag(rpm, rpmutils.SUMMARY),
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func stringTag(rpm *rpmutils.Rpm, tag int) string {
	val, err := rpm.Header.Get(tag)
	if err != nil {
		return ""
	}
	switch v := val.(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	case []byte:
		return string(v)
	}
	return ""
}
