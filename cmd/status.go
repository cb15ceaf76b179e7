package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/bnema/gestation-osc/internal/adapters/httpapi"
	statusadapter "github.com/bnema/gestation-osc/internal/adapters/render/status"
	"github.com/spf13/cobra"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the gestation state of the current avatar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := apiClient(cmd, opts)
			if err != nil {
				return err
			}

			state, err := client.State(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch state: %w", err)
			}
			return writeState(cmd, state, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw state as JSON")

	return cmd
}

func writeState(cmd *cobra.Command, state httpapi.StateResponse, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}

	rendered, err := statusadapter.Render(state.Snapshot(), statusadapter.RenderOptions{})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
