package hooks

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/glorpus-work/hif/internal/logger"
)

// DefaultModules are the tengo stdlib modules scripts may import.
var DefaultModules = []string{"fmt", "os", "text", "times", "json"}

// TengoExecutor runs hooks as Tengo scripts. A script fails the hook either
// with a runtime error or by assigning a non-empty string or error to err.
type TengoExecutor struct {
	modules []string
}

// NewTengoExecutor creates a new Tengo script executor.
func NewTengoExecutor(modules ...string) *TengoExecutor {
	if len(modules) == 0 {
		modules = DefaultModules
	}
	return &TengoExecutor{modules: modules}
}

// Run executes hook with the context variables bound as globals.
// Hooks without content are a no-op.
func (e *TengoExecutor) Run(ctx context.Context, hook Hook, hc HookContext) error {
	if hook.Type == "" {
		return ErrHookTypeEmpty
	}
	if hook.Content == "" {
		return nil
	}

	script := tengo.NewScript([]byte(hook.Content))
	script.SetImports(stdlib.GetModuleMap(e.modules...))

	vars := map[string]interface{}{
		"packageName":    hc.PackageName,
		"packageVersion": hc.PackageVersion,
		"packageArch":    hc.PackageArch,
		"nevra":          hc.NEVRA,
		"operation":      hc.Operation,
		"installRoot":    hc.InstallRoot,
		"stagingDir":     hc.StagingDir,
		"oldVersion":     hc.OldVersion,
	}
	maps.Copy(vars, hc.Vars)
	for _, name := range slices.Sorted(maps.Keys(vars)) {
		if err := script.Add(name, vars[name]); err != nil {
			return fmt.Errorf("failed to add variable '%s' to script: %w", name, err)
		}
	}

	logger.Debug("Running hook", logger.Fields{
		"hook":    string(hook.Type),
		"package": hc.NEVRA,
	})

	compiled, err := script.RunContext(ctx)
	if err != nil {
		return fmt.Errorf("%s of %s: %w: %w", hook.Type, hc.NEVRA, ErrHookExecution, err)
	}

	switch v := compiled.Get("err").Object().(type) {
	case *tengo.Error:
		msg, _ := tengo.ToString(v.Value)
		return fmt.Errorf("%s of %s: %w: %s", hook.Type, hc.NEVRA, ErrHookScript, msg)
	case *tengo.String:
		if v.Value != "" {
			return fmt.Errorf("%s of %s: %w: %s", hook.Type, hc.NEVRA, ErrHookScript, v.Value)
		}
	}
	return nil
}
