// Package alerts derives operator alerts from maintenance assessments and the
// demand forecast.
package alerts

import (
	"fmt"
	"math"
	"strings"

	"github.com/kilianp07/sanifleet/core/forecast"
	"github.com/kilianp07/sanifleet/core/maintenance"
)

// Severity of an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Kind identifies what triggered an alert.
type Kind string

const (
	KindMaintenance Kind = "maintenance"
	KindBattery     Kind = "battery"
	KindDemand      Kind = "demand"
	KindNone        Kind = "none"
)

// Alert is a single prescriptive message.
type Alert struct {
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Units    []string `json:"units,omitempty"`
}

const allClear = "No alerts. System operating within expected thresholds."

// Generator holds alert thresholds.
type Generator struct {
	LowBattery       float64
	SurgeUtilization float64
	MaxRiskNames     int
	MaxBatteryNames  int
}

// NewGenerator returns the default thresholds.
func NewGenerator() Generator {
	return Generator{LowBattery: 25, SurgeUtilization: 0.85, MaxRiskNames: 3, MaxBatteryNames: 2}
}

// Generate is a shorthand for NewGenerator().Generate.
func Generate(assessments []maintenance.Assessment, fc *forecast.Result) []Alert {
	return NewGenerator().Generate(assessments, fc)
}

// Generate returns the alerts for the given state. Assessments are expected
// in scorer order (highest risk first). fc may be nil. The result always holds
// at least one alert.
func (g Generator) Generate(assessments []maintenance.Assessment, fc *forecast.Result) []Alert {
	var out []Alert

	var high []maintenance.Assessment
	for _, a := range assessments {
		if a.Risk == maintenance.RiskHigh {
			high = append(high, a)
		}
	}
	if len(high) > 0 {
		names := unitNames(high, g.MaxRiskNames)
		out = append(out, Alert{
			Kind:     KindMaintenance,
			Severity: SeverityCritical,
			Message: fmt.Sprintf("Priority maintenance advised for %s (risk %d%%).",
				strings.Join(names, ", "), int(math.Round(high[0].RiskScore*100))),
			Units: names,
		})
	}

	var low []maintenance.Assessment
	for _, a := range assessments {
		if a.BatteryLevel < g.LowBattery {
			low = append(low, a)
		}
	}
	if len(low) > 0 {
		names := unitNames(low, g.MaxBatteryNames)
		out = append(out, Alert{
			Kind:     KindBattery,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("Charge %s soon (battery < %d%%).", strings.Join(names, ", "), int(g.LowBattery)),
			Units:    names,
		})
	}

	if fc != nil && fc.Utilization != nil && *fc.Utilization > g.SurgeUtilization {
		out = append(out, Alert{
			Kind:     KindDemand,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("Demand surge expected on %s. %s", fc.Summary.PeakDay.Date, fc.Recommendation),
		})
	}

	if len(out) == 0 {
		out = append(out, Alert{Kind: KindNone, Severity: SeverityInfo, Message: allClear})
	}
	return out
}

func unitNames(as []maintenance.Assessment, limit int) []string {
	if limit > 0 && len(as) > limit {
		as = as[:limit]
	}
	out := make([]string, 0, len(as))
	for _, a := range as {
		if a.SerialNo != "" {
			out = append(out, a.SerialNo)
		} else {
			out = append(out, a.ID)
		}
	}
	return out
}
