package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/kilianp07/sanifleet/core/maintenance"
	"github.com/kilianp07/sanifleet/core/scheduler"
)

func samplePlan() scheduler.Plan {
	return scheduler.Plan{
		Start: "2025-06-11",
		Visits: []scheduler.Visit{
			{Date: "2025-06-11", UnitID: "u1", SerialNo: "SN-1", Location: "CBD", Risk: maintenance.RiskHigh, RiskScore: 0.85, DueInDays: 0},
			{Date: "2025-06-12", UnitID: "u2", Risk: maintenance.RiskLow, RiskScore: 0.1, DueInDays: 0.5, Late: true},
		},
		Deferred: []string{"u3"},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, samplePlan()); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "date,unit_id,serial_no,location,risk,risk_score,due_in_days,late\n" +
		"2025-06-11,u1,SN-1,CBD,high,0.85,0,false\n" +
		"2025-06-12,u2,,,low,0.1,0.5,true\n"
	if buf.String() != want {
		t.Fatalf("unexpected csv:\n%s", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, samplePlan()); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out scheduler.Plan
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Visits) != 2 || out.Deferred[0] != "u3" {
		t.Fatalf("unexpected plan %+v", out)
	}
}
