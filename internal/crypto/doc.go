// Package crypto provides encryption services for data at rest.
//
// Implements AES-256-GCM encryption for identity-provider tokens stored in PostgreSQL.
// Two implementations: AESGCMService (production) and NoopService (dev/test plaintext passthrough).
package crypto
