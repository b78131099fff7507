// Package token manages the two credential shapes the engine hands out:
// signed, stateless JWT access/refresh tokens, and random opaque secrets for
// email verification and password reset.
//
// JWTs are self-verifying: no repository round-trip is needed to validate
// one, trading instant revocation for a stateless API tier. Opaque secrets
// carry no structure at all; [Digest] produces their at-rest form and the
// repository-stored expiry bounds their validity.
package token
