package main

import (
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-grades/internal/grading"
)

func templateCmd() *cobra.Command {
	var (
		tasks, parts []int
		title        string
		format       string
	)
	cmd := &cobra.Command{
		Use:       "template <none|addition|average>",
		Short:     "Print a starter grading model over the given sources",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(grading.TemplateNone), string(grading.TemplateAddition), string(grading.TemplateAverage)},
		RunE: func(cmd *cobra.Command, args []string) error {
			sources := make([]grading.TemplateSource, 0, len(tasks)+len(parts))
			for _, id := range tasks {
				sources = append(sources, grading.TemplateSource{ID: id, Kind: grading.SourceTask})
			}
			for _, id := range parts {
				sources = append(sources, grading.TemplateSource{ID: id, Kind: grading.SourceCoursePart})
			}
			g, err := grading.NewTemplate(grading.Template(args[0]), sources, title)
			if err != nil {
				return err
			}
			raw, err := json.MarshalIndent(g, "", "  ")
			if err != nil {
				return err
			}
			switch format {
			case "json":
			case "yaml":
				if raw, err = yaml.JSONToYAML(raw); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown output format %q", format)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return err
		},
	}
	cmd.Flags().IntSliceVar(&tasks, "task", nil, "course task id to use as a source (repeatable)")
	cmd.Flags().IntSliceVar(&parts, "part", nil, "course part id to use as a source (repeatable)")
	cmd.Flags().StringVar(&title, "title", "", "title of the terminal node")
	cmd.Flags().StringVarP(&format, "output", "o", "yaml", "output format: yaml or json")
	return cmd
}
