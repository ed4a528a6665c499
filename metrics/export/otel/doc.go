// Package otel publishes tenantauth engine metrics as OpenTelemetry
// observable instruments. Every counter becomes an Int64ObservableCounter and
// each verify-latency bucket an Int64ObservableGauge; one callback reads the
// engine snapshot per collection. The caller owns the MeterProvider.
package otel
