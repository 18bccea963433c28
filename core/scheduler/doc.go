// Package scheduler spreads preventive service visits over the coming days.
// Units are visited earliest-deadline first within the crew capacity of each
// day. Plans can be exported to JSON or CSV.
package scheduler
