// Package metric provides Prometheus metrics for the medpanel API client.
//
// The CLI does not expose an HTTP endpoint; metrics are gathered from a
// private registry and dumped on demand (--metrics flag, "metrics" in the
// shell).
//
// Metrics include:
//
//   - API requests by method and status class, with latency histograms
//   - Transport failures by stage (send, read, decode)
//   - Session expirations detected by the client
//   - Credential store writes and clears
package metric
