package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kilianp07/sanifleet/core/scheduler"
)

// WriteJSON writes the service plan to w in JSON format.
func WriteJSON(w io.Writer, plan scheduler.Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}

// WriteCSV writes the planned visits to w, one row per visit, for crew
// dispatch sheets.
func WriteCSV(w io.Writer, plan scheduler.Plan) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "unit_id", "serial_no", "location", "risk", "risk_score", "due_in_days", "late"}); err != nil {
		return err
	}
	for _, v := range plan.Visits {
		rec := []string{
			v.Date,
			v.UnitID,
			v.SerialNo,
			v.Location,
			string(v.Risk),
			strconv.FormatFloat(v.RiskScore, 'f', -1, 64),
			strconv.FormatFloat(v.DueInDays, 'f', -1, 64),
			strconv.FormatBool(v.Late),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
