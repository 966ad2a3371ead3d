package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-grades/internal/grading"
)

func evalCmd() *cobra.Command {
	var (
		tie, expiry string
		scale       string
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "eval <model.yaml> <records.yaml>",
		Short: "Evaluate a grading model over dated records",
		Long: `Evaluate a grading model for every student of a records file. One record
is selected per source node under the --tie and --expiry policies, as of the
file's "at" time (default now).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := grading.ParseSelectPolicy(tie, expiry)
			if err != nil {
				return err
			}
			g, err := readGraph(args[0])
			if err != nil {
				return err
			}
			recs, err := readRecords(args[1])
			if err != nil {
				return err
			}
			subjects, err := recs.subjects(policy, time.Now())
			if err != nil {
				return err
			}
			res, err := grading.EvaluateBatch(g, subjects)
			if err != nil {
				return err
			}
			if scale != "" {
				for id, r := range res {
					r.Warnings = append(r.Warnings, grading.CheckRange(r.TerminalValue, grading.Scale(scale))...)
					res[id] = r
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			_, err = fmt.Fprintln(out, renderResults(res))
			return err
		},
	}
	cmd.Flags().StringVar(&tie, "tie", string(grading.TieBest), "tie policy: best or latest")
	cmd.Flags().StringVar(&expiry, "expiry", string(grading.ExpiryPreferNonExpired), "expiry policy: any, prefer_non_expired or non_expired")
	cmd.Flags().StringVar(&scale, "scale", "", "check final grades against NUMERICAL, PASS_FAIL or SECOND_NATIONAL_LANGUAGE")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print full results as JSON")
	return cmd
}

func renderResults(res map[grading.SubjectID]grading.Result) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Student", "Grade", "Missing", "Warnings"})
	for _, id := range sortedSubjectIDs(res) {
		r := res[id]
		missing := make([]string, 0, len(r.Missing))
		for node := range r.Missing {
			missing = append(missing, node)
		}
		sort.Strings(missing)
		kinds := make([]string, 0, len(r.Warnings))
		for _, w := range r.Warnings {
			kinds = append(kinds, string(w.Kind))
		}
		t.AppendRow(table.Row{int(id), r.TerminalValue, strings.Join(missing, ", "), strings.Join(kinds, ", ")})
	}
	return t.Render()
}
