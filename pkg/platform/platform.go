// Package platform maps the running machine onto rpm architecture names and
// decides which package architectures it can install.
package platform

import (
	"runtime"
	"strings"
)

// Architectures with special meaning.
const (
	// NoArch packages install on every architecture.
	NoArch = "noarch"
	// SourceArch packages are never installable.
	SourceArch = "src"
)

// compat lists, most preferred first, the architectures each system arch accepts.
var compat = map[string][]string{
	"x86_64":  {"x86_64", "amd64", "athlon", "i686", "i586", "i486", "i386", NoArch},
	"i686":    {"i686", "i586", "i486", "i386", NoArch},
	"i586":    {"i586", "i486", "i386", NoArch},
	"aarch64": {"aarch64", NoArch},
	"armv7hl": {"armv7hl", "armv6hl", NoArch},
	"ppc64le": {"ppc64le", NoArch},
	"s390x":   {"s390x", NoArch},
	"riscv64": {"riscv64", NoArch},
}

// CurrentArch returns the rpm name of the running architecture.
func CurrentArch() string {
	return NormalizeArch(runtime.GOARCH)
}

// NormalizeArch converts Go and common alias spellings to rpm names.
func NormalizeArch(arch string) string {
	arch = strings.ToLower(strings.TrimSpace(arch))
	switch arch {
	case "amd64", "x64":
		return "x86_64"
	case "386", "x86", "i386":
		return "i686"
	case "arm64":
		return "aarch64"
	case "arm":
		return "armv7hl"
	case "ppc64le":
		return "ppc64le"
	default:
		return arch
	}
}

// Known reports whether arch is a supported system architecture.
func Known(arch string) bool {
	_, ok := compat[NormalizeArch(arch)]
	return ok
}

// Compatible reports whether a package built for pkgArch installs on system.
func Compatible(system, pkgArch string) bool {
	return Score(system, pkgArch) >= 0
}

// Score ranks pkgArch for the system arch: 0 is the native arch, larger
// values are less preferred and -1 means not installable.
func Score(system, pkgArch string) int {
	if pkgArch == SourceArch {
		return -1
	}
	list, ok := compat[NormalizeArch(system)]
	if !ok {
		if pkgArch == system {
			return 0
		}
		if pkgArch == NoArch {
			return 1
		}
		return -1
	}
	for i, a := range list {
		if a == pkgArch {
			return i
		}
	}
	return -1
}
