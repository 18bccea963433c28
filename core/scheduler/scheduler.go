package scheduler

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kilianp07/sanifleet/core/maintenance"
	"github.com/kilianp07/sanifleet/core/model"
)

// Visit is one planned service stop.
type Visit struct {
	Date      string                `json:"date"`
	UnitID    string                `json:"unitId"`
	SerialNo  string                `json:"serialNo,omitempty"`
	Location  string                `json:"location,omitempty"`
	RiskScore float64               `json:"riskScore"`
	Risk      maintenance.RiskLabel `json:"risk"`
	DueInDays float64               `json:"dueInDays"`
	// Late marks visits planned after the unit's service due date.
	Late bool `json:"late"`
}

// Plan is the output of GeneratePlan. Deferred lists units that are not
// due within the horizon or did not fit in the crew capacity.
type Plan struct {
	Start    string   `json:"start"`
	Visits   []Visit  `json:"visits"`
	Deferred []string `json:"deferred"`
}

// Scheduler builds service plans.
type Scheduler struct {
	Config SchedulerConfig
}

// GeneratePlan assigns the assessed units to working days starting at date.
func (s *Scheduler) GeneratePlan(date time.Time, as []maintenance.Assessment) (Plan, error) {
	cfg := s.Config
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return Plan{}, fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	start := model.Day(date)
	days := s.workingDays(start, cfg)

	queue := make([]maintenance.Assessment, 0, len(as))
	plan := Plan{Start: start.Format(model.DateLayout), Visits: []Visit{}, Deferred: []string{}}
	for _, a := range as {
		if a.ServiceDueInDays > float64(cfg.HorizonDays) {
			plan.Deferred = append(plan.Deferred, a.ID)
			continue
		}
		queue = append(queue, a)
	}
	sort.SliceStable(queue, func(i, j int) bool {
		if queue[i].ServiceDueInDays != queue[j].ServiceDueInDays {
			return queue[i].ServiceDueInDays < queue[j].ServiceDueInDays
		}
		if queue[i].RiskScore != queue[j].RiskScore {
			return queue[i].RiskScore > queue[j].RiskScore
		}
		return queue[i].ID < queue[j].ID
	})

	for i, a := range queue {
		slot := i / cfg.VisitsPerDay
		if slot >= len(days) {
			plan.Deferred = append(plan.Deferred, a.ID)
			continue
		}
		day := days[slot]
		offset := day.Sub(start).Hours() / 24
		plan.Visits = append(plan.Visits, Visit{
			Date:      day.Format(model.DateLayout),
			UnitID:    a.ID,
			SerialNo:  a.SerialNo,
			Location:  a.Location,
			RiskScore: a.RiskScore,
			Risk:      a.Risk,
			DueInDays: a.ServiceDueInDays,
			Late:      offset > math.Ceil(a.ServiceDueInDays),
		})
	}
	return plan, nil
}

func (s *Scheduler) workingDays(start time.Time, cfg SchedulerConfig) []time.Time {
	out := make([]time.Time, 0, cfg.HorizonDays)
	for d := start; len(out) < cfg.HorizonDays; d = d.AddDate(0, 0, 1) {
		if cfg.SkipWeekends && (d.Weekday() == time.Saturday || d.Weekday() == time.Sunday) {
			continue
		}
		out = append(out, d)
	}
	return out
}
