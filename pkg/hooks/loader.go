package hooks

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/hif/pkg/errors"
)

// FileExtension is the suffix of hook scripts inside a package.
const FileExtension = ".tengo"

// LoadDir reads <dir>/<hook-type>.tengo files. A missing directory yields an
// empty set; files with other names are ignored.
func LoadDir(dir string) (Set, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return Set{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(ErrHookLoad, "failed to read hook directory %s: %v", dir, err)
	}

	set := Set{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != FileExtension {
			continue
		}
		hookType := HookType(strings.TrimSuffix(entry.Name(), FileExtension))
		if !hookType.Valid() {
			continue
		}

		hookPath := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(hookPath)
		if err != nil {
			return nil, errors.Wrapf(ErrHookLoad, "error reading hook file %s: %v", hookPath, err)
		}
		set[hookType] = string(content)
	}
	return set, nil
}
