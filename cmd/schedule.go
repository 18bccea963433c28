package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/sanifleet/config"
	"github.com/kilianp07/sanifleet/core/model"
	"github.com/kilianp07/sanifleet/core/scheduler"
	"github.com/kilianp07/sanifleet/pkg/export"
)

var (
	scheduleFormat string
	scheduleConfig string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Plan service visits for the units read as JSON",
	Args:  cobra.NoArgs,
	RunE:  runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVarP(&inputPath, "input", "i", "", "JSON request file (default stdin)")
	scheduleCmd.Flags().StringVarP(&scheduleFormat, "format", "f", "json", "output format: json or csv")
	scheduleCmd.Flags().StringVar(&scheduleConfig, "schedule-config", "", "YAML or JSON file overriding engine.schedule")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	if scheduleFormat != "json" && scheduleFormat != "csv" {
		return fmt.Errorf("unknown format %q", scheduleFormat)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if scheduleConfig != "" {
		sc, err := scheduler.LoadConfig(scheduleConfig)
		if err != nil {
			return fmt.Errorf("schedule config: %w", err)
		}
		cfg.Engine.Schedule = sc
	}
	eng, closeLog, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	in, closeIn, err := openInput(cmd)
	if err != nil {
		return err
	}
	defer closeIn()
	var req struct {
		Units []model.Unit `json:"units"`
	}
	if err := decode(in, &req); err != nil {
		return err
	}
	plan, err := eng.PlanServiceSchedule(cmd.Context(), req.Units)
	if err != nil {
		return err
	}
	if scheduleFormat == "csv" {
		return export.WriteCSV(cmd.OutOrStdout(), plan)
	}
	return export.WriteJSON(cmd.OutOrStdout(), plan)
}
