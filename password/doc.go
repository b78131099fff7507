// Package password implements password hashing and verification with Argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Hashes are self-contained: verification uses the parameters embedded in the
// stored string, so the configured work factor can be raised at any time.
// [Argon2.NeedsRehash] reports stale hashes so callers can re-hash on the next
// successful login.
//
// This package owns hashing and verification only. Password policy (minimum
// length) is enforced by the engine, and plaintext never leaves the call
// stack.
package password
