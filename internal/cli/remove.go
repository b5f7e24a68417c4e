package cli

import (
	"github.com/spf13/cobra"

	"github.com/glorpus-work/hif/pkg/orchestrator"
)

// NewRemoveCmd creates the remove command.
func NewRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove [pkgname...]",
		Aliases: []string{"erase"},
		Short:   "Remove packages",
		Long: `Remove one or more installed packages. Packages depending on them
are removed as well.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.OutOrStdout(), func(s *session) error {
				_, err := s.Remove(cmd.Context(), args, orchestrator.Options{})
				return err
			})
		},
	}

	return cmd
}
