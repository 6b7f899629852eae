package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pragmatic.dev/pkg/pragmatic/internal/domain"
	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View the last audit report",
		Long:  "View the audit report stored in the reports directory by the last audit run.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			reportsPath := m.Path(viper.GetString(outputFlagName))
			return workflow.View(cmd.Context(), domain.ViewArgs{Reports: reportsPath})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
