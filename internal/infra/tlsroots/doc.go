// Package tlsroots builds the trust store the API client verifies the
// server against: the system roots plus an optional private CA bundle
// (tls.cafile), for deployments behind a hospital-internal CA.
package tlsroots
