// Package prometheus renders tenantauth engine metrics in the Prometheus text
// exposition format. Nothing is registered globally; callers mount
// [Exporter.Handler] on their own router.
package prometheus
