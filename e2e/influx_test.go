//go:build integration

package e2e

import (
	"context"
	"fmt"
	"testing"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/sanifleet/core/engine"
	"github.com/kilianp07/sanifleet/core/events"
	"github.com/kilianp07/sanifleet/core/model"
	"github.com/kilianp07/sanifleet/infra/metrics"
	"github.com/kilianp07/sanifleet/internal/eventbus"
)

const (
	influxOrg    = "sanifleet"
	influxBucket = "decisions"
	influxToken  = "e2e-token"
)

// startInflux starts an InfluxDB 2.7 container already set up with the test
// organisation, bucket and token.
func startInflux(ctx context.Context, t *testing.T) string {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "admin",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "sanifleet-admin",
			"DOCKER_INFLUXDB_INIT_ORG":         influxOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      influxBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": influxToken,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	t.Cleanup(func() { _ = cont.Terminate(context.Background()) })
	host, err := cont.Host(ctx)
	require.NoError(t, err)
	port, err := cont.MappedPort(ctx, "8086")
	require.NoError(t, err)
	return fmt.Sprintf("http://%s:%s", host, port.Port())
}

func TestInfluxSink_RecordsEngineEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	url := startInflux(ctx, t)

	sink := metrics.NewInfluxSink(metrics.InfluxConfig{URL: url, Token: influxToken, Org: influxOrg, Bucket: influxBucket})
	defer sink.Close()
	bus := eventbus.New[events.Event](eventbus.WithBuffer(16))
	collected := metrics.StartEventCollector(ctx, bus, sink)

	eng, err := engine.New(engine.Config{}, engine.WithPublisher(bus))
	require.NoError(t, err)
	_, err = eng.AssessMaintenance(ctx, []model.Unit{
		{ID: "u1", Location: "CBD", FillLevel: 95, BatteryLevel: 10},
		{ID: "u2", Location: "CBD", FillLevel: 20, BatteryLevel: 80},
	})
	require.NoError(t, err)

	client := influxdb2.NewClient(url, influxToken)
	defer client.Close()
	query := fmt.Sprintf(`from(bucket:%q) |> range(start: -1h) |> filter(fn: (r) => r._measurement == "unit_risk" and r._field == "risk_score")`, influxBucket)
	require.Eventually(t, func() bool {
		res, err := client.QueryAPI(influxOrg).Query(ctx, query)
		if err != nil {
			return false
		}
		defer res.Close()
		units := map[string]bool{}
		for res.Next() {
			if id, ok := res.Record().ValueByKey("unit_id").(string); ok {
				units[id] = true
			}
		}
		return len(units) == 2
	}, 20*time.Second, 250*time.Millisecond)

	cancel()
	<-collected
}
