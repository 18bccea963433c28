//go:build integration

// Package e2e runs the service against real brokers and databases started
// with testcontainers.
package e2e

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/sanifleet/app"
	"github.com/kilianp07/sanifleet/config"
	"github.com/kilianp07/sanifleet/core/unitstatus"
	"github.com/kilianp07/sanifleet/infra/mqtt"
	"github.com/kilianp07/sanifleet/internal/simulator"
	"github.com/kilianp07/sanifleet/internal/testutil"
)

func TestFleetEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	broker, cleanup, err := testutil.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("mosquitto unavailable: %v", err)
	}
	defer cleanup()

	cfg := &config.Config{}
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.MQTT.Broker = broker
	cfg.Telemetry.Enabled = true
	cfg.Notify.Enabled = true
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())

	svc, err := app.New(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- svc.Run(runCtx) }()

	sim, err := mqtt.NewPahoClient(mqtt.Config{Broker: broker, QoS: 1})
	require.NoError(t, err)
	defer sim.Disconnect()
	runner := &simulator.Runner{
		Units:     simulator.GenerateFleet(simulator.FleetConfig{Size: 5}, rand.New(rand.NewSource(7))),
		Publisher: sim,
		Prefix:    cfg.Telemetry.Prefix,
		Rng:       rand.New(rand.NewSource(7)),
	}

	// The subscriber starts asynchronously so keep publishing until the
	// snapshots land.
	require.Eventually(t, func() bool {
		runner.Tick(ctx, time.Minute)
		rr := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/units/status", nil))
		var st []unitstatus.Status
		return rr.Code == http.StatusOK && json.Unmarshal(rr.Body.Bytes(), &st) == nil && len(st) == 5
	}, 20*time.Second, 200*time.Millisecond)

	crew, err := mqtt.NewPahoClient(mqtt.Config{Broker: broker, QoS: 1})
	require.NoError(t, err)
	defer crew.Disconnect()
	alertsCh := make(chan []byte, 8)
	require.NoError(t, crew.Subscribe(cfg.Notify.AlertTopic, func(_ string, p []byte) { alertsCh <- p }))

	body := `{"units":[{"id":"x","serialNo":"SN-X","fillLevel":40,"batteryLevel":5}]}`
	rr := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/ai/alerts", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	select {
	case p := <-alertsCh:
		var msg struct {
			Kind  string   `json:"kind"`
			Units []string `json:"units"`
		}
		require.NoError(t, json.Unmarshal(p, &msg))
		assert.Equal(t, "battery", msg.Kind)
		assert.Equal(t, []string{"SN-X"}, msg.Units)
	case <-time.After(10 * time.Second):
		t.Fatal("alert not published")
	}

	stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("service did not stop")
	}
}
