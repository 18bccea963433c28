package scheduler

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/kilianp07/sanifleet/core/maintenance"
	"github.com/kilianp07/sanifleet/core/model"
)

func assessment(id string, due, risk float64) maintenance.Assessment {
	return maintenance.Assessment{ID: id, ServiceDueInDays: due, RiskScore: risk}
}

func TestGeneratePlanEarliestDeadlineFirst(t *testing.T) {
	s := Scheduler{Config: SchedulerConfig{HorizonDays: 3, VisitsPerDay: 2}}
	date := time.Date(2025, 6, 11, 15, 0, 0, 0, time.UTC)
	plan, err := s.GeneratePlan(date, []maintenance.Assessment{
		assessment("c", 2, 0.1),
		assessment("a", 0, 0.9),
		assessment("b", 0, 0.95),
		assessment("d", 0.5, 0.5),
		assessment("e", 3, 0.2),
		assessment("f", 4, 0.2),
	})
	if err != nil {
		t.Fatalf("plan error: %v", err)
	}
	if plan.Start != "2025-06-11" {
		t.Fatalf("unexpected start %s", plan.Start)
	}
	want := []struct {
		id, date string
		late     bool
	}{
		{"b", "2025-06-11", false},
		{"a", "2025-06-11", false},
		{"d", "2025-06-12", false},
		{"c", "2025-06-12", false},
		{"e", "2025-06-13", false},
	}
	if len(plan.Visits) != len(want) {
		t.Fatalf("expected %d visits got %d", len(want), len(plan.Visits))
	}
	for i, w := range want {
		v := plan.Visits[i]
		if v.UnitID != w.id || v.Date != w.date || v.Late != w.late {
			t.Fatalf("visit %d: got %+v want %+v", i, v, w)
		}
	}
	if len(plan.Deferred) != 1 || plan.Deferred[0] != "f" {
		t.Fatalf("unexpected deferred %v", plan.Deferred)
	}
}

func TestGeneratePlanCapacityOverflow(t *testing.T) {
	s := Scheduler{Config: SchedulerConfig{HorizonDays: 2, VisitsPerDay: 1}}
	plan, err := s.GeneratePlan(time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC), []maintenance.Assessment{
		assessment("a", 0, 0.9), assessment("b", 0, 0.8), assessment("c", 0, 0.7),
	})
	if err != nil {
		t.Fatalf("plan error: %v", err)
	}
	if len(plan.Visits) != 2 || !plan.Visits[1].Late {
		t.Fatalf("expected the second visit to be late: %+v", plan.Visits)
	}
	if len(plan.Deferred) != 1 || plan.Deferred[0] != "c" {
		t.Fatalf("unexpected deferred %v", plan.Deferred)
	}
}

func TestGeneratePlanSkipsWeekends(t *testing.T) {
	s := Scheduler{Config: SchedulerConfig{HorizonDays: 2, VisitsPerDay: 1, SkipWeekends: true}}
	// 2025-06-13 is a Friday.
	plan, err := s.GeneratePlan(time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC), []maintenance.Assessment{
		assessment("a", 1, 0.5), assessment("b", 2, 0.5),
	})
	if err != nil {
		t.Fatalf("plan error: %v", err)
	}
	if plan.Visits[1].Date != "2025-06-16" || !plan.Visits[1].Late {
		t.Fatalf("expected monday visit, got %+v", plan.Visits[1])
	}
}

func TestGeneratePlanInvalid(t *testing.T) {
	s := Scheduler{Config: SchedulerConfig{VisitsPerDay: -1}}
	if _, err := s.GeneratePlan(time.Now(), nil); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestGeneratePlanEmpty(t *testing.T) {
	s := Scheduler{}
	plan, err := s.GeneratePlan(time.Now(), nil)
	if err != nil {
		t.Fatalf("plan error: %v", err)
	}
	if plan.Visits == nil || plan.Deferred == nil || len(plan.Visits) != 0 {
		t.Fatalf("expected empty non-nil slices %+v", plan)
	}
}

func TestLoadConfig(t *testing.T) {
	data := "horizon_days: 5\nvisits_per_day: 12\nskip_weekends: true\n"
	cfg, err := DecodeConfig(bytes.NewBufferString(data), "yaml")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.HorizonDays != 5 || cfg.VisitsPerDay != 12 || !cfg.SkipWeekends {
		t.Fatalf("bad cfg %#v", cfg)
	}
	if _, err := DecodeConfig(bytes.NewBufferString("{}"), "toml"); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/cfg.json"
	if err := os.WriteFile(path, []byte(`{"horizon_days":3,"visits_per_day":4}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HorizonDays != 3 || cfg.VisitsPerDay != 4 {
		t.Fatalf("bad cfg %#v", cfg)
	}
	if _, err := LoadConfig(path + ".txt"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
