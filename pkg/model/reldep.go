package model

import (
	"strings"

	"github.com/glorpus-work/hif/pkg/errors"
	"github.com/glorpus-work/hif/pkg/evr"
)

// Flags is the rpm comparison bitset of a dependency.
type Flags uint8

// Comparison bits, numerically identical to rpm's RPMSENSE values.
const (
	FlagLT Flags = 1 << 1
	FlagGT Flags = 1 << 2
	FlagEQ Flags = 1 << 3

	FlagLE = FlagLT | FlagEQ
	FlagGE = FlagGT | FlagEQ
)

var flagOps = []struct {
	op    string
	flags Flags
}{
	{"<=", FlagLE},
	{">=", FlagGE},
	{"==", FlagEQ},
	{"<", FlagLT},
	{">", FlagGT},
	{"=", FlagEQ},
}

// Op returns the operator spelling of the flags, or "" for an unversioned dependency.
func (f Flags) Op() string {
	switch f {
	case FlagLT:
		return "<"
	case FlagLE:
		return "<="
	case FlagEQ:
		return "="
	case FlagGE:
		return ">="
	case FlagGT:
		return ">"
	default:
		return ""
	}
}

// ParseFlags reads the repository metadata spelling (LT, LE, EQ, GE, GT).
func ParseFlags(s string) (Flags, error) {
	switch strings.ToUpper(s) {
	case "":
		return 0, nil
	case "LT":
		return FlagLT, nil
	case "LE":
		return FlagLE, nil
	case "EQ":
		return FlagEQ, nil
	case "GE":
		return FlagGE, nil
	case "GT":
		return FlagGT, nil
	default:
		return 0, errors.Wrapf(errors.ErrValidation, "unknown dependency flags %q", s)
	}
}

// Reldep is a versioned capability: a requires, provides or conflicts entry.
type Reldep struct {
	Name  string  `json:"name"`
	Flags Flags   `json:"flags,omitempty"`
	EVR   evr.EVR `json:"evr,omitempty"`
}

// ParseReldep reads "name", "name >= 2.0" or "name>=1:2.0-3".
func ParseReldep(s string) (Reldep, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Reldep{}, errors.Wrap(errors.ErrValidation, "empty dependency")
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '<' && s[i] != '>' && s[i] != '=' {
			continue
		}
		for _, fo := range flagOps {
			if !strings.HasPrefix(s[i:], fo.op) {
				continue
			}
			name := strings.TrimSpace(s[:i])
			if name == "" {
				return Reldep{}, errors.Wrapf(errors.ErrValidation, "missing name in dependency %q", s)
			}
			v, err := evr.Parse(s[i+len(fo.op):])
			if err != nil {
				return Reldep{}, errors.Wrapf(err, "dependency %q", s)
			}
			return Reldep{Name: name, Flags: fo.flags, EVR: v}, nil
		}
	}
	if strings.ContainsAny(s, " \t") {
		return Reldep{}, errors.Wrapf(errors.ErrValidation, "malformed dependency %q", s)
	}
	return Reldep{Name: s}, nil
}

// MustParseReldep is ParseReldep for literals.
func MustParseReldep(s string) Reldep {
	d, err := ParseReldep(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Versioned reports whether the dependency constrains the version.
func (d Reldep) Versioned() bool {
	return d.Flags&(FlagLT|FlagGT|FlagEQ) != 0
}

// String renders "name op evr".
func (d Reldep) String() string {
	if !d.Versioned() {
		return d.Name
	}
	return d.Name + " " + d.Flags.Op() + " " + d.EVR.String()
}

// IsFile reports whether the dependency names a file path.
func (d Reldep) IsFile() bool {
	return strings.HasPrefix(d.Name, "/")
}

// Matches reports whether the two ranges share a name and overlap.
// An unversioned side matches every version of the other.
func (d Reldep) Matches(o Reldep) bool {
	if d.Name != o.Name {
		return false
	}
	if !d.Versioned() || !o.Versioned() {
		return true
	}
	c := evr.CompareLoose(d.EVR, o.EVR)
	switch {
	case c < 0:
		return d.Flags&FlagGT != 0 || o.Flags&FlagLT != 0
	case c > 0:
		return d.Flags&FlagLT != 0 || o.Flags&FlagGT != 0
	default:
		return d.Flags&o.Flags != 0
	}
}

// ParseReldeps parses a list, stopping at the first error.
func ParseReldeps(list []string) ([]Reldep, error) {
	out := make([]Reldep, 0, len(list))
	for _, s := range list {
		d, err := ParseReldep(s)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
