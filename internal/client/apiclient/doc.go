// Package apiclient is the typed REST client of the hospital API.
//
// Every call goes through Client.Do, which injects the JSON and bearer
// headers, parses the response and turns non-2xx answers into *APIError.
// Responses that signal an invalidated session (401, or a message matching
// the known expiry phrases) trigger the client-wide forced logout before
// the error is returned.
//
// The generic helpers Get, Post, Put and Delete decode straight into the
// caller's type:
//
//	resp, err := apiclient.Get[apiclient.Envelope[Profile]](ctx, c, "/auth/me")
//	if apiclient.IsSessionExpired(err) {
//		// credential already cleared, auth:expired published
//	}
//
// Network and parse failures are returned as *TransportError and are never
// retried.
package apiclient
