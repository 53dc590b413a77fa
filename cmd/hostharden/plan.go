package main

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/hostharden/internal/adapters/logging"
	"github.com/felixgeelhaar/hostharden/internal/app"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "List the hardening steps in order without changing anything",
	Args:  cobra.NoArgs,
	RunE:  runPlan,
}

func runPlan(cmd *cobra.Command, _ []string) error {
	format, err := app.ParseFormat(outputFormat)
	if err != nil {
		return preRun(err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return preRun(err)
	}

	logger := logging.NewNopLogger()
	h := app.New(cfg, newDeps(cfg, logger))
	return app.NewRenderer(cmd.OutOrStdout()).Plan(h.Plan(), format)
}
