// Package otel exposes authclient metrics as OpenTelemetry observable instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter and one
// Int64ObservableGauge per histogram bucket, all fed by a single callback that reads
// [authclient.Client.MetricsSnapshot] on each collection. The caller owns the Meter and
// its provider.
package otel
