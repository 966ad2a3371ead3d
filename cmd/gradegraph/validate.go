package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-grades/internal/grading"
)

var errInvalidGraph = errors.New("grading model is invalid")

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <model.yaml>",
		Short: "Check a grading model for structural errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readGraph(args[0])
			if err != nil {
				return err
			}
			res := grading.Validate(g)
			out := cmd.OutOrStdout()
			if len(res.Errors)+len(res.Warnings) > 0 {
				_, _ = fmt.Fprintln(out, renderValidation(res))
			}
			if !res.OK() {
				return fmt.Errorf("%w: %d error(s)", errInvalidGraph, len(res.Errors))
			}
			order, err := grading.TopologicalOrder(g)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "ok: %d nodes, order %s\n", len(order), strings.Join(order, " "))
			return err
		},
	}
}

func renderValidation(res grading.ValidationResult) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Level", "Kind", "Nodes", "Message"})
	for _, e := range res.Errors {
		t.AppendRow(table.Row{"error", e.Kind.Error(), strings.Join(e.NodeIDs, ", "), e.Msg})
	}
	for _, w := range res.Warnings {
		t.AppendRow(table.Row{"warning", string(w.Kind), w.NodeID, w.Message})
	}
	return t.Render()
}
