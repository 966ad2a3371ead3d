package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-grades/internal/config"
)

var version = "0.0.0"

var envFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gradegraph",
		Short: "Evaluate grading models over course grades",
		Long: `gradegraph validates and evaluates grading models: directed graphs that
turn a student's task and course-part grades into a final grade.

Run "gradegraph serve" for the HTTP service, or use the validate, eval and
template commands to work with model files directly.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read before the environment")

	root.AddCommand(serveCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(evalCmd())
	root.AddCommand(templateCmd())
	root.AddCommand(tokenCmd())
	root.AddCommand(versionCmd())
	return root
}

func loadConfig() config.Config {
	return config.Load(envFile)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
