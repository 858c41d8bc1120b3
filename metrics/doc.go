// Package metrics provides observability hooks for restores, device checks and
// backup housekeeping.
//
// Components accept a Recorder and default to NoopRecorder, so metrics never
// need nil checks at the call site:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	engine := restore.New(conn, restore.WithRecorder(rec))
//	http.Handle("/metrics", metrics.Handler(reg))
package metrics
