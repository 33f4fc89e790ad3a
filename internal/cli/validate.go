package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kolah/routedoc/internal/generator"
	"github.com/kolah/routedoc/internal/loader"
)

var errInvalidDocument = errors.New("document has validation issues")

func ValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate an OpenAPI document and its request examples",
		Long: `Re-read an OpenAPI document the way its consumers would, validate it against the
OpenAPI schema and check every JSON request example against its operation.

Without a file the document is generated from the route manifest first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runValidate,
	}

	cmd.Flags().StringSlice("api-type", nil, "Only include these api types when generating")
	cmd.Flags().Bool("skip-examples", false, "Only validate the document itself")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	var result *loader.Result
	var err error

	if len(args) == 1 {
		result, err = loader.LoadFile(args[0])
	} else {
		result, err = generated(cmd)
	}
	if err != nil {
		return err
	}

	for _, w := range result.Warnings {
		cmd.PrintErrf("Warning: %s\n", w)
	}

	stats := result.Stats()
	cmd.PrintErrf("Loaded OpenAPI %s\n", result.Version)
	cmd.PrintErrf("  Paths: %d\n", stats.Paths)
	cmd.PrintErrf("  Operations: %d\n", stats.Operations)
	cmd.PrintErrf("  Tags: %d\n", stats.Tags)
	cmd.PrintErrf("  Schemas: %d\n", stats.Schemas)
	modules := make([]string, 0, len(stats.Modules))
	for m := range stats.Modules {
		modules = append(modules, m)
	}
	sort.Strings(modules)
	for _, m := range modules {
		cmd.PrintErrf("    %s: %d\n", m, stats.Modules[m])
	}

	issues, err := result.Validate()
	if err != nil {
		return err
	}

	if skip, _ := cmd.Flags().GetBool("skip-examples"); !skip {
		exampleIssues, err := result.CheckExamples()
		if err != nil {
			return err
		}
		issues = append(issues, exampleIssues...)
	}

	for _, issue := range issues {
		fmt.Fprintln(cmd.OutOrStdout(), issue.String())
	}
	if len(issues) > 0 {
		return fmt.Errorf("%w: %d", errInvalidDocument, len(issues))
	}
	cmd.PrintErrln("Document is valid")
	return nil
}

func generated(cmd *cobra.Command) (*loader.Result, error) {
	a, err := newApp(cmd, true)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	apiTypes, _ := cmd.Flags().GetStringSlice("api-type")
	data, err := a.gen.Generate(cmd.Context(), generator.Request{
		Format:   generator.FormatOpenAPI,
		APITypes: apiTypes,
		Encoding: generator.EncodingJSON,
		NoCache:  true,
	})
	if err != nil {
		return nil, err
	}
	return loader.Load(data)
}
