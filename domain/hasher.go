package domain

// Hasher is the port for key derivation.
type Hasher interface {
	Hash(data []byte) string
}
