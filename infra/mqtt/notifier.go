package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/kilianp07/sanifleet/core/events"
	coremqtt "github.com/kilianp07/sanifleet/core/mqtt"
	"github.com/kilianp07/sanifleet/core/routing"
	"github.com/kilianp07/sanifleet/infra/logger"
	"github.com/kilianp07/sanifleet/internal/eventbus"
)

// NotifierConfig selects the topics used for outgoing notifications.
type NotifierConfig struct {
	Enabled    bool   `json:"enabled"`
	AlertTopic string `json:"alert_topic"`
	RouteTopic string `json:"route_topic"`
}

// SetDefaults fills empty topics.
func (c *NotifierConfig) SetDefaults() {
	if c.AlertTopic == "" {
		c.AlertTopic = "sanifleet/alerts"
	}
	if c.RouteTopic == "" {
		c.RouteTopic = "sanifleet/routes"
	}
}

type alertMessage struct {
	Kind     string    `json:"kind"`
	Severity string    `json:"severity"`
	Message  string    `json:"message"`
	Units    []string  `json:"units,omitempty"`
	Time     time.Time `json:"time"`
}

type routeMessage struct {
	PlanID          string                `json:"planId"`
	Depot           []float64             `json:"depot"`
	OrderedStops    []routing.PlannedStop `json:"orderedStops"`
	TotalDistanceKm float64               `json:"totalDistanceKm"`
	Time            time.Time             `json:"time"`
}

// Notifier forwards raised alerts and planned routes to MQTT so field crews
// receive them.
type Notifier struct {
	pub coremqtt.Publisher
	cfg NotifierConfig
	log logger.Logger
}

// NewNotifier returns a notifier publishing through pub.
func NewNotifier(pub coremqtt.Publisher, cfg NotifierConfig) *Notifier {
	cfg.SetDefaults()
	return &Notifier{pub: pub, cfg: cfg, log: logger.New("notifier")}
}

// Start consumes bus events until ctx is canceled or the bus closes. The
// returned channel is closed when the notifier stops.
func (n *Notifier) Start(ctx context.Context, bus *eventbus.Bus[events.Event]) <-chan struct{} {
	done := make(chan struct{})
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := n.Notify(ctx, ev); err != nil {
					n.log.Errorf("notify %T: %v", ev, err)
				}
			}
		}
	}()
	return done
}

// Notify publishes a single event. Events other than alerts and route plans
// are ignored.
func (n *Notifier) Notify(ctx context.Context, ev events.Event) error {
	var (
		topic string
		msg   any
	)
	switch e := ev.(type) {
	case events.AlertRaised:
		topic = n.cfg.AlertTopic
		msg = alertMessage{
			Kind:     string(e.Alert.Kind),
			Severity: string(e.Alert.Severity),
			Message:  e.Alert.Message,
			Units:    e.Alert.Units,
			Time:     e.Time.UTC(),
		}
	case events.RoutePlanned:
		topic = strings.TrimSuffix(n.cfg.RouteTopic, "/") + "/" + e.PlanID
		msg = routeMessage{
			PlanID:          e.PlanID,
			Depot:           e.Depot,
			OrderedStops:    e.Route.OrderedStops,
			TotalDistanceKm: e.Route.TotalDistanceKm,
			Time:            e.Time.UTC(),
		}
	default:
		return nil
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return n.pub.Publish(ctx, topic, payload)
}
