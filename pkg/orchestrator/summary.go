package orchestrator

import (
	"fmt"
	"io"
	"slices"

	"github.com/dustin/go-humanize"

	"github.com/glorpus-work/hif/pkg/model"
)

// WriteSummary prints the packages plan installs, sorted by cmp, followed
// by the packages it removes:
//
//	Transaction: 2 packages
//	  bar-1.0-1.noarch (main)
//	  foo-2.0-1.noarch (main)
//	Download size: 12 kB
//	Removing: 1 packages
//	  old-1.0-1.noarch (main)
func WriteSummary(w io.Writer, plan *model.Plan, cmp func(a, b *model.Package) int) {
	install := plan.InstallSet()
	slices.SortFunc(install, cmp)
	_, _ = fmt.Fprintf(w, "Transaction: %d packages\n", len(install))
	if len(install) == 0 {
		_, _ = fmt.Fprintln(w, "  (empty)")
	}
	for _, p := range install {
		_, _ = fmt.Fprintf(w, "  %s (%s)\n", p.NEVRA(), p.Repo)
	}
	if size := plan.DownloadSize(); size > 0 {
		_, _ = fmt.Fprintf(w, "Download size: %s\n", humanize.Bytes(uint64(size)))
	}

	remove := plan.RemoveSet()
	if len(remove) == 0 {
		return
	}
	slices.SortFunc(remove, cmp)
	_, _ = fmt.Fprintf(w, "Removing: %d packages\n", len(remove))
	for _, p := range remove {
		_, _ = fmt.Fprintf(w, "  %s (%s)\n", p.NEVRA(), p.Repo)
	}
}

// WriteComplete prints the line closing a successful transaction.
func WriteComplete(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Complete.")
}
