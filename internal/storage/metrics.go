package storage

import (
	"time"
)

// SearchMetric is one recorded search call.
type SearchMetric struct {
	Query       string        `json:"query"`
	Mode        string        `json:"mode"`
	ResultCount int           `json:"resultCount"`
	Duration    time.Duration `json:"duration"`
}

// RecordSearch appends a search metric. Metric failures are logged, never
// surfaced; telemetry must not break the query path.
func (d *DB) RecordSearch(m SearchMetric) {
	_, err := d.conn.Exec(
		`INSERT INTO search_metrics (query, mode, result_count, duration_ms) VALUES (?, ?, ?, ?)`,
		m.Query, m.Mode, m.ResultCount, m.Duration.Milliseconds())
	if err != nil && d.logger != nil {
		d.logger.Debug("failed to record search metric", "error", err.Error())
	}
}

// MetricsSummary aggregates recorded searches for rpg_info.
type MetricsSummary struct {
	TotalSearches int     `json:"totalSearches"`
	AvgDurationMs float64 `json:"avgDurationMs"`
	ZeroResultPct float64 `json:"zeroResultPct"`
}

// Summary computes aggregate search statistics.
func (d *DB) Summary() MetricsSummary {
	var s MetricsSummary
	row := d.conn.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(AVG(duration_ms), 0),
		       COALESCE(AVG(CASE WHEN result_count = 0 THEN 100.0 ELSE 0.0 END), 0)
		FROM search_metrics`)
	_ = row.Scan(&s.TotalSearches, &s.AvgDurationMs, &s.ZeroResultPct)
	return s
}
