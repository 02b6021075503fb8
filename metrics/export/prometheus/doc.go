// Package prometheus renders authclient metrics in Prometheus text exposition format.
//
// [NewPrometheusExporter] reads from an [authclient.Client] and exposes an
// [http.Handler]. Counters are named authclient_*_total; the refresh latency histogram
// is authclient_refresh_latency_seconds. Nothing is registered globally: callers mount
// the handler themselves.
package prometheus
