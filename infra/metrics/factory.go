package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/sanifleet/core/factory"
	coremetrics "github.com/kilianp07/sanifleet/core/metrics"
)

// init registers the prometheus and influx sinks.
func init() {
	_ = coremetrics.RegisterSink("prometheus", func(map[string]any) (coremetrics.Sink, error) {
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	})

	_ = coremetrics.RegisterSink("influx", func(conf map[string]any) (coremetrics.Sink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c), nil
	})
}
