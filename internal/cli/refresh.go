package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/hif/pkg/errors"
)

// NewRefreshCmd creates the refresh command.
func NewRefreshCmd() *cobra.Command {
	var repoID string

	cmd := &cobra.Command{
		Use:   "refresh [force]",
		Short: "Refresh repository metadata",
		Long: `Check the metadata of every enabled repository and download it again
when it is older than the configured cache age. "force" downloads all of it.
Unreachable repositories are skipped, unless a single one is named with --repo.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force := false
			if len(args) == 1 {
				if args[0] != "force" {
					return errors.Wrapf(errors.ErrInvalidArguments, "unexpected argument %q, expected \"force\"", args[0])
				}
				force = true
			}
			return withSession(cmd.OutOrStdout(), func(s *session) error {
				if repoID != "" {
					return s.UpdateRepo(cmd.Context(), repoID)
				}
				results, err := s.Refresh(cmd.Context(), force)
				if err != nil {
					return fmt.Errorf("failed to refresh repositories: %w", err)
				}
				if len(results) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No enabled repositories")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&repoID, "repo", "", "Update only the repository with this id")

	return cmd
}
