package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/gestation-osc/internal/adapters/httpapi"
	statusadapter "github.com/bnema/gestation-osc/internal/adapters/render/status"
	"github.com/bnema/gestation-osc/internal/application"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newMonitorCmd(opts *rootOptions) *cobra.Command {
	var refresh time.Duration

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Watch and edit the current avatar's gestation record interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := apiClient(cmd, opts)
			if err != nil {
				return err
			}

			p := tea.NewProgram(
				statusadapter.NewMonitor(apiController{client: client}, refresh, statusadapter.RenderOptions{}),
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
				tea.WithAltScreen(),
			)
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("run monitor: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&refresh, "refresh", statusadapter.DefaultRefresh, "state refresh interval")

	return cmd
}

// apiController lets the monitor drive the daemon over its control API.
type apiController struct {
	client *httpapi.Client
}

func (c apiController) State(ctx context.Context) (application.Snapshot, error) {
	state, err := c.client.State(ctx)
	return state.Snapshot(), err
}

func (c apiController) Recheck(ctx context.Context) (application.Snapshot, error) {
	state, err := c.client.Recheck(ctx)
	return state.Snapshot(), err
}

func (c apiController) Mutate(ctx context.Context, mutation application.Mutation) (application.Snapshot, error) {
	state, err := c.client.Mutate(ctx, httpapi.NewMutationRequest(mutation))
	return state.Snapshot(), err
}
