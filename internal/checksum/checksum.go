// Package checksum computes the content digests used to deduplicate stored
// binaries.
package checksum

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Size is the length of a digest returned by Sum, in hex characters.
const Size = 64 * 2 // SHA3-512 digests are 64 bytes

// Sum returns the lowercase hex SHA3-512 digest of data.
func Sum(data []byte) string {
	sum := sha3.Sum512(data)
	return hex.EncodeToString(sum[:])
}

// Verify reports whether sum is the digest of data. Hex case is ignored.
func Verify(data []byte, sum string) bool {
	return strings.EqualFold(Sum(data), sum)
}
