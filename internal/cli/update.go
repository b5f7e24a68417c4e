package cli

import (
	"github.com/spf13/cobra"

	"github.com/glorpus-work/hif/pkg/orchestrator"
)

// NewUpdateCmd creates the update command.
func NewUpdateCmd() *cobra.Command {
	var test bool

	cmd := &cobra.Command{
		Use:     "update [pkgname...]",
		Aliases: []string{"upgrade"},
		Short:   "Update packages",
		Long:    "Update one or more installed packages to the newest available builds.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.OutOrStdout(), func(s *session) error {
				_, err := s.Update(cmd.Context(), args, orchestrator.Options{Test: test})
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&test, "test", false, "Download and verify packages without installing them")

	return cmd
}
