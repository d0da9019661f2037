package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"unimatch/internal/catalog"
	dErrors "unimatch/pkg/domain-errors"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <catalog.yaml>",
		Short: "Validate a catalog file and summarize its offerings",
		Long: `Validate a catalog file against the document schema and the catalog
rules, then print the offerings it resolves to per category.

Unknown institution codes and duplicate offerings are reported as warnings.
With --strict any warning fails validation.`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
	cmd.Flags().Bool("strict", false, "Treat resolution warnings as errors")
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	strict, _ := cmd.Flags().GetBool("strict")
	out := cmd.OutOrStdout()

	_, resolved, _, err := loadFile(cmd.Context(), args[0])
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeMalformedCatalog) {
			return &RejectedError{Message: err.Error()}
		}
		return err
	}

	printResolved(out, resolved)

	warnings := resolved.Resolution.Warnings
	if len(warnings) > 0 {
		printWarnings(out, warnings)
		if strict {
			return &RejectedError{Message: fmt.Sprintf("%d resolution warning(s)", len(warnings))}
		}
	}
	color.New(color.FgGreen).Fprintf(out, "catalog %s is valid\n", resolved.Version)
	return nil
}

func printResolved(out io.Writer, resolved *catalog.Resolved) {
	fmt.Fprintf(out, "Version:      %s\n", resolved.Version)
	fmt.Fprintf(out, "Institutions: %d\n", len(resolved.Institutions))
	fmt.Fprintf(out, "Programs:     %d\n", resolved.Programs)
	fmt.Fprintf(out, "Offerings:    %d\n\n", len(resolved.Offerings()))

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Category", "Offerings"})
	for _, g := range resolved.Resolution.Categories {
		table.Append([]string{g.Category, strconv.Itoa(len(g.Offerings))})
	}
	table.Render()
}

func printWarnings(out io.Writer, warnings []catalog.Warning) {
	warn := color.New(color.FgYellow)
	warn.Fprintf(out, "\n%d warning(s)\n", len(warnings))
	for _, w := range warnings {
		warn.Fprintf(out, "  %s: program %q, institution %q\n", w.Kind, w.ProgramName, w.InstitutionCode)
	}
}
