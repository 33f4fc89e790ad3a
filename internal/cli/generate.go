package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kolah/routedoc/internal/generator"
)

func GenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [format...]",
		Short: "Generate documents (openapi, collection, workspace, environment)",
		Long: `Generate one document per format from the route manifest.

Without arguments the OpenAPI document is generated. Files are written to the
output directory as {format}-{api types|all}[-{environment}].{json|yaml}.`,
		Example: `  routedoc generate
  routedoc generate openapi collection --api-type api,mobile
  routedoc generate workspace --environment staging --encoding yaml`,
		RunE: runGenerate,
	}

	flags := cmd.Flags()
	flags.StringSlice("api-type", nil, "Only include these api types")
	flags.StringP("environment", "e", "", "Environment whose base URL replaces the servers")
	flags.String("encoding", "", "Output encoding: json, yaml")
	flags.StringP("output-dir", "o", "", "Output directory")
	flags.Bool("no-cache", false, "Ignore cached documents")
	flags.Bool("stdout", false, "Print documents instead of writing files")
	flags.String("timestamp", "", "RFC 3339 time used for export and example dates (default: route manifest modification time)")

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	formats := []generator.Format{generator.FormatOpenAPI}
	if len(args) > 0 {
		formats = formats[:0]
		for _, arg := range args {
			f, err := generator.ParseFormat(arg)
			if err != nil {
				return err
			}
			formats = append(formats, f)
		}
	}

	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	apiTypes, _ := cmd.Flags().GetStringSlice("api-type")
	env, _ := cmd.Flags().GetString("environment")
	noCache, _ := cmd.Flags().GetBool("no-cache")
	stdout, _ := cmd.Flags().GetBool("stdout")

	for _, f := range formats {
		req := generator.Request{
			Format:      f,
			APITypes:    apiTypes,
			Environment: env,
			Encoding:    a.cfg.Output.Encoding,
			NoCache:     noCache,
		}
		data, err := a.gen.Generate(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("generating %s: %w", f, err)
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

func write(cmd *cobra.Command, dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	cmd.PrintErrf("Written: %s\n", path)
	return nil
}
