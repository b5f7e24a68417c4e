package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the hif command with all verbs and global flags.
func NewRootCmd() *cobra.Command {
	configPath, verbose, noColor = "", false, false

	cmd := &cobra.Command{
		Use:   "hif",
		Short: "Package manager for rpm-md repositories",
		Long: `hif installs, removes and updates packages from rpm-md and JSON
repositories, resolving dependencies and keeping a local metadata cache.`,
		Version:       Version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}
	cmd.SetVersionTemplate("Version:\t{{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: $XDG_CONFIG_HOME/hif/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show extra debugging information")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		NewCleanCmd(),
		NewInstallCmd(),
		NewRefreshCmd(),
		NewReinstallCmd(),
		NewRemoveCmd(),
		NewUpdateCmd(),
	)

	return cmd
}
