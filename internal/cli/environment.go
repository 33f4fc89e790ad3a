package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kolah/routedoc/internal/config"
	"github.com/kolah/routedoc/internal/generator"
)

func EnvironmentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "environment [name...]",
		Short: "Generate environment documents",
		Long: `Generate one environment document per named environment. Without names every
environment except the base one is generated.`,
		RunE: runEnvironment,
	}

	flags := cmd.Flags()
	flags.String("encoding", "", "Output encoding: json, yaml")
	flags.StringP("output-dir", "o", "", "Output directory")
	flags.Bool("stdout", false, "Print documents instead of writing files")

	return cmd
}

func runEnvironment(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	names := args
	if len(names) == 0 {
		for _, name := range a.gen.ListEnvironments() {
			if name != config.BaseEnvironment {
				names = append(names, name)
			}
		}
	}

	stdout, _ := cmd.Flags().GetBool("stdout")
	for _, name := range names {
		req := generator.Request{
			Format:      generator.FormatEnvironment,
			Environment: name,
			Encoding:    a.cfg.Output.Encoding,
			NoCache:     true,
		}
		data, err := a.gen.Generate(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("generating environment %s: %w", name, err)
		}
		if stdout {
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			continue
		}
		if err := write(cmd, a.cfg.Output.Dir, a.gen.Filename(req), data); err != nil {
			return err
		}
	}
	return nil
}
