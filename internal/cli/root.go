package cli

import (
	"github.com/spf13/cobra"

	"github.com/kolah/routedoc/internal/config"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "routedoc",
		Short:         "routedoc - API documentation from a route table",
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,

		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	config.BindCommonFlags(root)
	root.AddCommand(
		GenerateCommand(),
		EnvironmentCommand(),
		ListCommand(),
		CacheCommand(),
		ServeCommand(),
		ValidateCommand(),
	)

	return root
}
