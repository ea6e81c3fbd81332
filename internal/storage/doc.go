// Package storage provides the embedded key-value layer behind the credential
// store.
//
// Engines:
//
//   - badger.go: Badger v3, on disk (or in memory for tests)
//   - memory.go: map-backed store for ephemeral sessions
//
// Both honor the same KV contract, including atomic batches, so the
// credential record (token + user snapshot) is always written or cleared as a
// unit.
package storage
