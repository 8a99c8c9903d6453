// Package cryptox holds the hashing used for bearer secrets stored at rest.
package cryptox

import "golang.org/x/crypto/blake2b"

// HashToken returns the BLAKE2b-256 digest of token.
func HashToken(token string) []byte {
	sum := blake2b.Sum256([]byte(token))
	return sum[:]
}
