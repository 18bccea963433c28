package metrics

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/sanifleet/core/metrics"
)

type lineRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (l *lineRecorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		l.mu.Lock()
		l.bodies = append(l.bodies, strings.TrimSpace(string(b)))
		l.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (l *lineRecorder) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.bodies...)
}

func lineProtocol(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSink_RecordDecision(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "b"})
	defer sink.Close()

	now := time.Now()
	if err := sink.RecordDecision(coremetrics.DecisionEvent{
		Operation: "route", Items: 4, Duration: 1500 * time.Microsecond, Time: now,
	}); err != nil {
		t.Fatalf("record: %v", err)
	}
	p := write.NewPointWithMeasurement("decision").
		AddTag("operation", "route").
		AddTag("failed", "false").
		AddField("items", 4).
		AddField("duration_ms", 1.5).
		SetTime(now)
	if got := rec.all(); len(got) != 1 || got[0] != lineProtocol(p) {
		t.Errorf("bodies: %#v", got)
	}
}

func TestInfluxSink_RecordRoute(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "tok", Org: "org", Bucket: "b"})
	defer sink.Close()

	now := time.Now()
	if err := sink.RecordRoute(coremetrics.RouteEvent{PlanID: "p1", Stops: 3, TotalDistanceKm: 12.34567, Time: now}); err != nil {
		t.Fatalf("record: %v", err)
	}
	p := write.NewPointWithMeasurement("route_plan").
		AddTag("plan_id", "p1").
		AddField("stops", 3).
		AddField("total_distance_km", 12.346).
		SetTime(now)
	if got := rec.all(); len(got) != 1 || got[0] != lineProtocol(p) {
		t.Errorf("bodies: %#v", got)
	}
}

func TestInfluxSink_RecordForecastWithoutCapacity(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "tok", Org: "org", Bucket: "b"})
	defer sink.Close()

	now := time.Now()
	if err := sink.RecordForecast(coremetrics.ForecastEvent{
		HorizonDays: 7, AvgDailyForecast: 9.86, PeakForecast: 11, Utilization: -1, Time: now,
	}); err != nil {
		t.Fatalf("record: %v", err)
	}
	want := fmt.Sprintf("demand_forecast horizon_days=7i,avg_daily=9.86,peak=11 %d", now.UnixNano())
	got := rec.all()
	if len(got) != 1 || got[0] != want {
		t.Fatalf("bodies: %#v", got)
	}
	if strings.Contains(got[0], "utilization") {
		t.Errorf("utilization written without capacity: %s", got[0])
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "b"})
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
