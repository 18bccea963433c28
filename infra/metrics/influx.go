package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/sanifleet/core/metrics"
	"github.com/kilianp07/sanifleet/infra/logger"
)

// InfluxConfig holds the connection settings of an InfluxSink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes decision engine activity to InfluxDB.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given endpoint. A trailing
// /api/v2/write on the URL is ignored.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback checks the instance health and returns a NopSink
// when it is unreachable or unhealthy.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func (s *InfluxSink) write(points ...*write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, points...)
}

func (s *InfluxSink) RecordDecision(ev coremetrics.DecisionEvent) error {
	p := write.NewPointWithMeasurement("decision").
		AddTag("operation", ev.Operation).
		AddTag("failed", strconv.FormatBool(ev.Failed)).
		AddField("items", ev.Items).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.write(p)
}

func (s *InfluxSink) RecordUnitRisk(evs []coremetrics.UnitRiskEvent) error {
	if len(evs) == 0 {
		return nil
	}
	points := make([]*write.Point, 0, len(evs))
	for _, e := range evs {
		p := write.NewPointWithMeasurement("unit_risk").
			AddTag("unit_id", e.UnitID)
		if e.Location != "" {
			p = p.AddTag("location", e.Location)
		}
		p = p.AddTag("risk", e.Risk).
			AddField("risk_score", round3(e.RiskScore)).
			AddField("fill_level", round3(e.FillLevel)).
			AddField("battery_level", round3(e.BatteryLevel)).
			SetTime(e.Time)
		points = append(points, p)
	}
	return s.write(points...)
}

func (s *InfluxSink) RecordRoute(ev coremetrics.RouteEvent) error {
	p := write.NewPointWithMeasurement("route_plan").
		AddTag("plan_id", ev.PlanID).
		AddField("stops", ev.Stops).
		AddField("total_distance_km", round3(ev.TotalDistanceKm)).
		SetTime(ev.Time)
	return s.write(p)
}

func (s *InfluxSink) RecordForecast(ev coremetrics.ForecastEvent) error {
	p := write.NewPointWithMeasurement("demand_forecast")
	if ev.Location != "" {
		p = p.AddTag("location", ev.Location)
	}
	p = p.AddField("horizon_days", ev.HorizonDays).
		AddField("avg_daily", round3(ev.AvgDailyForecast)).
		AddField("peak", round3(ev.PeakForecast))
	if ev.Utilization >= 0 {
		p = p.AddField("utilization", round3(ev.Utilization))
	}
	return s.write(p.SetTime(ev.Time))
}

func (s *InfluxSink) RecordSuggestion(ev coremetrics.SuggestionEvent) error {
	p := write.NewPointWithMeasurement("booking_suggestion")
	if ev.Location != "" {
		p = p.AddTag("location", ev.Location)
	}
	p = p.AddField("date", ev.Date).
		AddField("score", round3(ev.Score)).
		AddField("utilization", round3(ev.Utilization)).
		SetTime(ev.Time)
	return s.write(p)
}

func (s *InfluxSink) RecordAlert(ev coremetrics.AlertEvent) error {
	p := write.NewPointWithMeasurement("alert").
		AddTag("kind", ev.Kind).
		AddTag("severity", ev.Severity).
		AddField("count", 1).
		SetTime(ev.Time)
	return s.write(p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
