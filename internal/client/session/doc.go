// Package session owns the locally persisted credential record and the
// client-wide reaction to an invalidated session.
//
// A Store holds at most one Credential under the fixed keys "token" and
// "user". The request executor reads it to build the Authorization header.
// When the executor detects an expired session it calls
// ExpiryHandler.Handle, which clears the store, publishes
// events.EventAuthExpired and, after a short delay, asks the Navigator to
// go to the login entry point.
package session
