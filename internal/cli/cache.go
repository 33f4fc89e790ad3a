package cli

import "github.com/spf13/cobra"

func CacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached documents",
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached document",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cache == nil {
				cmd.PrintErrln("Cache is disabled")
				return nil
			}
			n, err := a.gen.ClearCache(cmd.Context())
			if err != nil {
				return err
			}
			cmd.PrintErrf("Cleared %d cached documents\n", n)
			return nil
		},
	}
	clearCmd.Flags().String("cache-driver", "", "Cache driver: memory, redis")

	cmd.AddCommand(clearCmd)
	return cmd
}
