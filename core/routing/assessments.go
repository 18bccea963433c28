package routing

import "github.com/kilianp07/sanifleet/core/maintenance"

// StopsFromAssessments converts scorer output into route stops using the risk
// score as urgency. Units below minRisk or without usable coordinates are
// skipped. The input order is preserved.
func StopsFromAssessments(assessments []maintenance.Assessment, minRisk float64) []Stop {
	stops := make([]Stop, 0, len(assessments))
	for _, a := range assessments {
		if a.RiskScore < minRisk || !a.Coordinates.Valid() {
			continue
		}
		urgency := a.RiskScore
		stops = append(stops, Stop{
			ID:           a.ID,
			SerialNo:     a.SerialNo,
			Coordinates:  a.Coordinates,
			Priority:     string(a.Risk),
			UrgencyScore: &urgency,
		})
	}
	return stops
}
