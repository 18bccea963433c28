package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/sanifleet/config"
	"github.com/kilianp07/sanifleet/core/booking"
	"github.com/kilianp07/sanifleet/core/decisionlog"
	"github.com/kilianp07/sanifleet/core/engine"
	"github.com/kilianp07/sanifleet/core/model"
	"github.com/kilianp07/sanifleet/core/routing"
	"github.com/kilianp07/sanifleet/infra/logger"
)

var inputPath string

// decision runs one engine operation on the decoded request.
type decision func(ctx context.Context, eng *engine.Engine, in io.Reader) (any, error)

func newDecisionCmd(use, short string, fn decision) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDecision(cmd, fn)
		},
	}
}

func init() {
	cmds := []*cobra.Command{
		newDecisionCmd("maintenance", "Score maintenance risk for units read as JSON", assessCmd),
		newDecisionCmd("route", "Plan a service route from a depot", routeCmd),
		newDecisionCmd("forecast", "Forecast daily booking demand", forecastCmd),
		newDecisionCmd("suggest", "Suggest a booking date", suggestCmd),
		newDecisionCmd("alerts", "Derive operator alerts from fleet telemetry", alertsCmd),
	}
	for _, c := range cmds {
		c.Flags().StringVarP(&inputPath, "input", "i", "", "JSON request file (default stdin)")
		rootCmd.AddCommand(c)
	}
}

func runDecision(cmd *cobra.Command, fn decision) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
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
	out, err := fn(cmd.Context(), eng, in)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// openEngine builds an engine that records into the configured decision log.
func openEngine(cfg *config.Config) (*engine.Engine, func(), error) {
	logger.SetLevel(cfg.Logging.Level)
	log := logger.New("cli")
	store, err := decisionlog.Open(cfg.DecisionLog)
	if err != nil {
		return nil, nil, fmt.Errorf("decision log: %w", err)
	}
	closeLog := func() {
		if err := store.Close(); err != nil {
			log.Errorf("decision log close: %v", err)
		}
	}
	eng, err := engine.New(cfg.Engine, engine.WithDecisionLog(store), engine.WithLogger(log))
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	return eng, closeLog, nil
}

func openInput(cmd *cobra.Command) (io.Reader, func(), error) {
	if inputPath == "" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(inputPath)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func decode(in io.Reader, v any) error {
	if err := json.NewDecoder(in).Decode(v); err != nil && err != io.EOF {
		return fmt.Errorf("%w: decode request: %v", model.ErrInvalidInput, err)
	}
	return nil
}

func assessCmd(ctx context.Context, eng *engine.Engine, in io.Reader) (any, error) {
	var req struct {
		Units []model.Unit `json:"units"`
	}
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	return eng.AssessMaintenance(ctx, req.Units)
}

func routeCmd(ctx context.Context, eng *engine.Engine, in io.Reader) (any, error) {
	var req struct {
		Depot model.Coordinates `json:"depot"`
		Stops []routing.Stop    `json:"stops"`
	}
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	return eng.PlanRoute(ctx, req.Depot, req.Stops)
}

func forecastCmd(ctx context.Context, eng *engine.Engine, in io.Reader) (any, error) {
	var req engine.ForecastRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	return eng.ForecastDemand(ctx, req)
}

func suggestCmd(ctx context.Context, eng *engine.Engine, in io.Reader) (any, error) {
	var req booking.Request
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	return eng.SuggestBooking(ctx, req)
}

func alertsCmd(ctx context.Context, eng *engine.Engine, in io.Reader) (any, error) {
	var req engine.AlertsRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	return eng.Alerts(ctx, req)
}
