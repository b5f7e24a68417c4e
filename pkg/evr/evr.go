// Package evr parses and orders rpm epoch:version-release triples.
package evr

import (
	"fmt"
	"strconv"
	"strings"

	rpmutils "github.com/sassoftware/go-rpmutils"

	"github.com/glorpus-work/hif/pkg/errors"
)

// EVR is the version part of a package identity.
type EVR struct {
	Epoch   int    `json:"epoch"`
	Version string `json:"version"`
	Release string `json:"release,omitempty"`
}

// Parse reads "[epoch:]version[-release]". The release is split at the last dash.
func Parse(s string) (EVR, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return EVR{}, errors.Wrap(errors.ErrValidation, "empty version")
	}
	var out EVR
	if i := strings.IndexByte(s, ':'); i >= 0 {
		epoch, err := strconv.Atoi(s[:i])
		if err != nil || epoch < 0 {
			return EVR{}, errors.Wrapf(errors.ErrValidation, "invalid epoch in %q", s)
		}
		out.Epoch = epoch
		s = s[i+1:]
	}
	if i := strings.LastIndexByte(s, '-'); i >= 0 {
		out.Version, out.Release = s[:i], s[i+1:]
	} else {
		out.Version = s
	}
	if out.Version == "" {
		return EVR{}, errors.Wrapf(errors.ErrValidation, "missing version in %q", s)
	}
	return out, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) EVR {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

// ParseEpoch converts the string form used in repository metadata, treating "" as 0.
func ParseEpoch(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	epoch, err := strconv.Atoi(s)
	if err != nil || epoch < 0 {
		return 0, errors.Wrapf(errors.ErrValidation, "invalid epoch %q", s)
	}
	return epoch, nil
}

// String renders the triple, omitting a zero epoch and an empty release.
func (e EVR) String() string {
	var b strings.Builder
	if e.Epoch != 0 {
		fmt.Fprintf(&b, "%d:", e.Epoch)
	}
	b.WriteString(e.Version)
	if e.Release != "" {
		b.WriteByte('-')
		b.WriteString(e.Release)
	}
	return b.String()
}

// IsZero reports whether no version was set.
func (e EVR) IsZero() bool {
	return e.Epoch == 0 && e.Version == "" && e.Release == ""
}

// Compare orders two triples the way rpm does: epoch numerically, then version
// and release segment by segment.
func Compare(a, b EVR) int {
	if c := cmpInt(a.Epoch, b.Epoch); c != 0 {
		return c
	}
	if c := Vercmp(a.Version, b.Version); c != 0 {
		return c
	}
	return Vercmp(a.Release, b.Release)
}

// CompareLoose is Compare except that a missing release on either side
// matches any release. Dependency ranges such as "bar >= 2.0" use it.
func CompareLoose(a, b EVR) int {
	if c := cmpInt(a.Epoch, b.Epoch); c != 0 {
		return c
	}
	if c := Vercmp(a.Version, b.Version); c != 0 {
		return c
	}
	if a.Release == "" || b.Release == "" {
		return 0
	}
	return Vercmp(a.Release, b.Release)
}

// Vercmp compares two version segments with rpm semantics.
func Vercmp(a, b string) int {
	if a == b {
		return 0
	}
	return rpmutils.Vercmp(a, b)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
