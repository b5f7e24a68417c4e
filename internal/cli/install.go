package cli

import (
	"github.com/spf13/cobra"

	"github.com/glorpus-work/hif/pkg/orchestrator"
)

// NewInstallCmd creates the install command.
func NewInstallCmd() *cobra.Command {
	var test bool

	cmd := &cobra.Command{
		Use:   "install [pkgname...]",
		Short: "Install packages",
		Long: `Install one or more packages from the enabled repositories.
Dependencies are resolved and installed along with them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.OutOrStdout(), func(s *session) error {
				_, err := s.Install(cmd.Context(), args, orchestrator.Options{Test: test})
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&test, "test", false, "Download and verify packages without installing them")

	return cmd
}

// NewReinstallCmd creates the reinstall command.
func NewReinstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reinstall [pkgname...]",
		Short: "Reinstall packages",
		Long:  "Download and install the already installed builds of packages again.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.OutOrStdout(), func(s *session) error {
				_, err := s.Reinstall(cmd.Context(), args, orchestrator.Options{})
				return err
			})
		},
	}

	return cmd
}
