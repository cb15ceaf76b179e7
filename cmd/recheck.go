package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRecheckCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "recheck",
		Short: "Ask the daemon to re-detect the gestation system on the current avatar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := apiClient(cmd, opts)
			if err != nil {
				return err
			}

			state, err := recheckWithProgress(cmd.Context(), cmd.ErrOrStderr(), client)
			if err != nil {
				return fmt.Errorf("recheck avatar: %w", err)
			}

			return writeState(cmd, state, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the resulting state as JSON")

	return cmd
}
