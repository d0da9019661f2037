package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"unimatch/internal/eligibility"
	"unimatch/internal/eligibility/report"
	eligibilityservice "unimatch/internal/eligibility/service"
	"unimatch/internal/profile"
	dErrors "unimatch/pkg/domain-errors"
)

func newEvaluateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate <catalog.yaml>",
		Short: "Evaluate a candidate against a catalog file",
		Long: `Evaluate one candidate's subjects against a catalog file and print the
offerings grouped by category, the way the API would return them.

Subjects are given as name=mark pairs:
  catalogctl evaluate catalog/catalog.yaml \
    -s "Mathematics=78" -s "English Home Language=71" -s "Life Orientation=80" ...`,
		Args: cobra.ExactArgs(1),
		RunE: runEvaluate,
	}
	cmd.Flags().StringArrayP("subject", "s", nil, "Subject and mark as name=mark (repeatable)")
	cmd.Flags().String("sort", string(report.SortByScore), "Sort within categories: score | program | institution")
	cmd.Flags().String("category", "", "Only show this category")
	cmd.Flags().String("institution", "", "Only show this institution short code")
	cmd.Flags().Bool("eligible-only", false, "Hide offerings the candidate does not qualify for")
	cmd.Flags().Int("min-subjects", profile.DefaultMinimumSubjects, "Contributing subjects required before matching")
	return cmd
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	raw, _ := flags.GetStringArray("subject")
	sortBy, _ := flags.GetString("sort")
	category, _ := flags.GetString("category")
	institution, _ := flags.GetString("institution")
	eligibleOnly, _ := flags.GetBool("eligible-only")
	minSubjects, _ := flags.GetInt("min-subjects")

	entries, err := parseSubjects(raw)
	if err != nil {
		return err
	}
	key, err := report.ParseSortKey(sortBy)
	if err != nil {
		return err
	}

	registry, _, _, err := loadFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	svc := eligibilityservice.New(registry, eligibilityservice.WithMinimumSubjects(minSubjects))

	rep, err := svc.Evaluate(cmd.Context(), eligibilityservice.Request{
		Subjects: entries,
		SortBy:   key,
		Filter:   report.Filter{Category: category, InstitutionCode: institution, EligibleOnly: eligibleOnly},
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeProfileIncomplete) || dErrors.HasCode(err, dErrors.CodeValidation) {
			return &RejectedError{Message: err.Error()}
		}
		return err
	}

	printReport(cmd.OutOrStdout(), rep)
	return nil
}

// parseSubjects reads name=mark pairs. The last '=' separates the mark.
func parseSubjects(raw []string) ([]profile.Entry, error) {
	if len(raw) == 0 {
		return nil, errors.New("at least one --subject is required")
	}
	entries := make([]profile.Entry, 0, len(raw))
	for _, pair := range raw {
		i := strings.LastIndex(pair, "=")
		if i <= 0 {
			return nil, fmt.Errorf("subject %q: want name=mark", pair)
		}
		mark, err := strconv.Atoi(strings.TrimSpace(pair[i+1:]))
		if err != nil {
			return nil, fmt.Errorf("subject %q: mark is not a number", pair)
		}
		entries = append(entries, profile.Entry{Name: strings.TrimSpace(pair[:i]), Mark: mark})
	}
	return entries, nil
}

func printReport(out io.Writer, rep *eligibilityservice.Report) {
	fmt.Fprintf(out, "Catalog %s: aggregate score %d from %d contributing subjects\n",
		rep.CatalogVersion, rep.AggregateScore, rep.ContributingSubjectCount)
	fmt.Fprintf(out, "Eligible for %d of %d offerings at %d institutions\n",
		rep.Summary.EligibleCount, rep.Summary.TotalOfferings, rep.Summary.DistinctInstitutionsAmongEligible)

	heading := color.New(color.FgCyan, color.Bold)
	for _, g := range rep.Groups {
		heading.Fprintf(out, "\n%s (%d of %d eligible)\n", g.Category, g.Eligible, g.Total)
		table := tablewriter.NewWriter(out)
		table.SetHeader([]string{"Institution", "Program", "Min", "Gap", "Tier", "Eligible", "Missing"})
		for _, r := range g.Results {
			table.Append(resultRow(r))
		}
		table.Render()
	}

	if len(rep.NearMisses) > 0 {
		color.New(color.FgYellow).Fprintf(out, "\nWithin reach (%d)\n", len(rep.NearMisses))
		for _, r := range rep.NearMisses {
			fmt.Fprintf(out, "  %s at %s: %d point(s) short\n",
				r.Offering.Rule.ProgramName, r.Offering.Institution.ShortCode, r.ScoreGap)
		}
	}
}

func resultRow(r eligibility.Result) []string {
	eligible := "no"
	if r.Eligible {
		eligible = "yes"
	}
	missing := make([]string, 0, len(r.Shortfalls))
	for _, s := range r.Shortfalls {
		missing = append(missing, fmt.Sprintf("%s L%d", s.Subject, s.RequiredLevel))
	}
	return []string{
		r.Offering.Institution.ShortCode,
		r.Offering.Rule.ProgramName,
		strconv.Itoa(r.Offering.Rule.MinimumAggregateScore),
		strconv.Itoa(r.ScoreGap),
		string(r.Tier),
		eligible,
		strings.Join(missing, ", "),
	}
}
