package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func ListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List what can be generated",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "api-types",
			Short: "List enabled api types",
			RunE: listRunE(func(a *app) []string {
				return a.gen.ListEnabledAPITypes()
			}),
		},
		&cobra.Command{
			Use:   "environments",
			Short: "List configured environments",
			RunE: listRunE(func(a *app) []string {
				return a.gen.ListEnvironments()
			}),
		},
	)

	return cmd
}

func listRunE(names func(*app) []string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		for _, name := range names(a) {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	}
}
