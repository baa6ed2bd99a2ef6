package utils

import (
    "crypto/sha256" // SHA‑256 hashing for refresh tokens at rest
    "encoding/hex"  // hex encoding of digests
)

// HashToken returns the SHA‑256 hash of a raw token string as a hex
// digest.  Refresh tokens are stored hashed in the database so that a
// leaked users table cannot be used to mint new sessions; comparisons
// against the stored slot are done hash-to-hash.
func HashToken(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}
