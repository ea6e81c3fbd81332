// Package sealer encrypts small records at rest.
//
// A Sealer derives a purpose-bound subkey from a master key with HKDF and
// seals values with an AEAD. The algorithm is picked per platform:
//
//   - AES-256-GCM on amd64 and arm64 (hardware AES)
//   - ChaCha20-Poly1305 elsewhere
//
// Every sealed value carries a one-byte algorithm tag, so values written on
// one platform still open on another.
//
// Usage:
//
//	key, err := sealer.LoadOrCreateKey("~/.medpanel/session.key")
//	s, err := sealer.New(key, "medpanel/session")
//	sealed, err := s.Seal(plaintext, []byte("token"))
//	plaintext, err := s.Open(sealed, []byte("token"))
package sealer
