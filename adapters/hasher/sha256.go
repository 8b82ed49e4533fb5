package hasher

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/satriahrh/synapse/domain"
)

// New returns a domain.Hasher that renders SHA-256 digests as hex,
// truncated to size bytes when size is between 1 and 32.
func New(size int) domain.Hasher {
	if size <= 0 || size > sha256.Size {
		size = sha256.Size
	}
	return sha256Hasher{size: size}
}

type sha256Hasher struct {
	size int
}

func (h sha256Hasher) Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:h.size])
}
