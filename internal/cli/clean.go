package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/glorpus-work/hif/internal/logger"
)

// NewCleanCmd creates the clean command.
func NewCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove cached metadata and packages",
		Long: `Remove the metadata and solver cache of every configured repository
and all downloaded packages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.OutOrStdout(), func(s *session) error {
				result, err := s.Clean(cmd.Context())
				if err != nil {
					return err
				}
				logger.Debug("Cache cleaned", logger.Fields{
					"metadata_freed": result.MetadataFreed,
					"package_freed":  result.PackageFreed,
				})
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "Cleaned metadata: %s\n", humanize.Bytes(uint64(result.MetadataFreed)))
				_, _ = fmt.Fprintf(out, "Cleaned packages: %s\n", humanize.Bytes(uint64(result.PackageFreed)))
				_, _ = fmt.Fprintf(out, "Total freed: %s\n", humanize.Bytes(uint64(result.TotalFreed)))
				return nil
			})
		},
	}

	return cmd
}
