package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kolah/routedoc/internal/server"
)

func ServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve generated documents over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.New(a.gen, a.cfg.Server.Prefix, a.log).ListenAndServe(ctx, a.cfg.Server.Addr)
		},
	}

	flags := cmd.Flags()
	flags.String("addr", "", "Listen address (default :8080)")
	flags.String("prefix", "", "URL prefix of the documentation routes (default /docs)")
	flags.String("cache-driver", "", "Cache driver: memory, redis")

	return cmd
}
