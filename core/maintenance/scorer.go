// Package maintenance ranks sanitation units by predicted maintenance risk
// from their latest telemetry snapshot.
package maintenance

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/kilianp07/sanifleet/core/model"
)

// RiskLabel buckets a risk score.
type RiskLabel string

const (
	RiskLow    RiskLabel = "low"
	RiskMedium RiskLabel = "medium"
	RiskHigh   RiskLabel = "high"
)

var recommendations = map[RiskLabel]string{
	RiskHigh:   "Dispatch technician within 24 hours",
	RiskMedium: "Schedule preventive service this week",
	RiskLow:    "Monitor only",
}

// Recommendation returns the fixed recommendation text for the label.
func (l RiskLabel) Recommendation() string { return recommendations[l] }

// Assessment is the scored view of one unit.
type Assessment struct {
	ID                   string            `json:"id"`
	SerialNo             string            `json:"serialNo"`
	Location             string            `json:"location,omitempty"`
	Coordinates          model.Coordinates `json:"coordinates,omitempty"`
	FillLevel            float64           `json:"fillLevel"`
	BatteryLevel         float64           `json:"batteryLevel"`
	MinutesSinceLastSeen int               `json:"minutesSinceLastSeen"`
	RiskScore            float64           `json:"riskScore"`
	Risk                 RiskLabel         `json:"risk"`
	ServiceDueInDays     float64           `json:"serviceDueInDays"`
	Recommendation       string            `json:"recommendation"`
}

// Scorer converts telemetry into risk assessments. Each risk factor ramps
// linearly between its start and full thresholds and the factors are combined
// with the configured weights.
type Scorer struct {
	FillWeight    float64
	BatteryWeight float64
	OfflineWeight float64

	FillRiskStart      float64 // fill percentage where risk starts
	BatteryRiskStart   float64 // battery percentage below which risk starts
	OfflineRiskStart   float64 // minutes unseen before risk starts
	OfflineRiskRamp    float64 // minutes between start and full offline risk
	HighThreshold      float64
	MediumThreshold    float64
	MaxServiceDueDays  float64
	BaseServiceDueDays float64

	// StrictTimestamps rejects malformed lastSeen values instead of treating
	// them as "now".
	StrictTimestamps bool

	// Now returns the reference time. Defaults to time.Now.
	Now func() time.Time
}

// NewScorer returns a scorer with the default weights and thresholds.
func NewScorer() Scorer {
	return Scorer{
		FillWeight:         0.55,
		BatteryWeight:      0.30,
		OfflineWeight:      0.15,
		FillRiskStart:      60,
		BatteryRiskStart:   20,
		OfflineRiskStart:   60,
		OfflineRiskRamp:    240,
		HighThreshold:      0.66,
		MediumThreshold:    0.33,
		MaxServiceDueDays:  14,
		BaseServiceDueDays: 7,
		Now:                time.Now,
	}
}

func (s Scorer) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Score assesses every unit and returns the results ordered by descending risk.
// Ties are broken by unit ID then serial number so output is reproducible.
// An error is only returned in strict timestamp mode.
func (s Scorer) Score(units []model.Unit) ([]Assessment, error) {
	now := s.now()
	out := make([]Assessment, 0, len(units))
	for _, u := range units {
		a, err := s.assess(u, now)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RiskScore != out[j].RiskScore {
			return out[i].RiskScore > out[j].RiskScore
		}
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].SerialNo < out[j].SerialNo
	})
	return out, nil
}

func (s Scorer) assess(u model.Unit, now time.Time) (Assessment, error) {
	fill := u.FillLevel.Percent()
	batt := u.BatteryLevel.Percent()

	mins, err := s.minutesSince(u, now)
	if err != nil {
		return Assessment{}, err
	}

	fillRisk := model.Clamp((fill-s.FillRiskStart)/(100-s.FillRiskStart), 0, 1)
	batteryRisk := model.Clamp((s.BatteryRiskStart-batt)/s.BatteryRiskStart, 0, 1)
	offlineRisk := model.Clamp((float64(mins)-s.OfflineRiskStart)/s.OfflineRiskRamp, 0, 1)

	risk := model.Clamp(s.FillWeight*fillRisk+s.BatteryWeight*batteryRisk+s.OfflineWeight*offlineRisk, 0, 1)
	risk = scalar.Round(risk, 2)
	label := s.label(risk)

	return Assessment{
		ID:                   u.ID,
		SerialNo:             u.SerialNo,
		Location:             u.Location,
		Coordinates:          u.Coordinates,
		FillLevel:            fill,
		BatteryLevel:         batt,
		MinutesSinceLastSeen: mins,
		RiskScore:            risk,
		Risk:                 label,
		ServiceDueInDays:     s.serviceDue(fill, batt),
		Recommendation:       label.Recommendation(),
	}, nil
}

func (s Scorer) minutesSince(u model.Unit, now time.Time) (int, error) {
	if u.LastSeen == "" {
		return 0, nil
	}
	seen, err := model.ParseTime(u.LastSeen)
	if err != nil {
		if s.StrictTimestamps {
			return 0, fmt.Errorf("unit %s lastSeen: %w", u.ID, err)
		}
		return 0, nil
	}
	mins := math.Round(now.Sub(seen).Minutes())
	if mins < 0 {
		return 0, nil
	}
	return int(mins), nil
}

func (s Scorer) label(score float64) RiskLabel {
	switch {
	case score > s.HighThreshold:
		return RiskHigh
	case score > s.MediumThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// serviceDue estimates days until a service visit is needed. A fuller tank and
// a battery under the risk threshold both pull the date closer.
func (s Scorer) serviceDue(fill, batt float64) float64 {
	days := s.BaseServiceDueDays - fill/12
	if batt < s.BatteryRiskStart {
		days -= (s.BatteryRiskStart - batt) / 10
	}
	return scalar.Round(model.Clamp(days, 0, s.MaxServiceDueDays), 1)
}
