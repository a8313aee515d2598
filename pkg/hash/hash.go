package hash

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
)

type Algorithm string

// Only collision-resistant digests are offered; fingerprint equality is
// treated as content equality.
const (
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"

	Default = SHA256
)

func (a Algorithm) String() string {
	return string(a)
}

// Supported lists the algorithms accepted for fingerprints.
func Supported() []Algorithm {
	return []Algorithm{SHA256, SHA512}
}

// ParseAlgorithm normalises a configured algorithm name.
func ParseAlgorithm(name string) (Algorithm, error) {
	alg := Algorithm(strings.ToLower(strings.TrimSpace(name)))
	if alg == "" {
		return Default, nil
	}
	if _, err := newHash(alg); err != nil {
		return "", err
	}
	return alg, nil
}

type Result struct {
	Algorithm Algorithm
	Hash      string
	Size      int64
}

type Hasher interface {
	Algorithm() Algorithm
	Sum(data []byte) (*Result, error)
	SumReader(reader io.Reader) (*Result, error)
}

// StreamHasher digests content without holding it in memory.
type StreamHasher struct {
	algorithm Algorithm
}

func NewStreamHasher(algorithm Algorithm) (*StreamHasher, error) {
	if _, err := newHash(algorithm); err != nil {
		return nil, err
	}
	return &StreamHasher{algorithm: algorithm}, nil
}

func (h *StreamHasher) Algorithm() Algorithm {
	return h.algorithm
}

func (h *StreamHasher) Sum(data []byte) (*Result, error) {
	hasher, err := newHash(h.algorithm)
	if err != nil {
		return nil, err
	}

	hasher.Write(data)
	return &Result{
		Algorithm: h.algorithm,
		Hash:      hex.EncodeToString(hasher.Sum(nil)),
		Size:      int64(len(data)),
	}, nil
}

func (h *StreamHasher) SumReader(reader io.Reader) (*Result, error) {
	hasher, err := newHash(h.algorithm)
	if err != nil {
		return nil, err
	}

	n, err := io.Copy(hasher, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	return &Result{
		Algorithm: h.algorithm,
		Hash:      hex.EncodeToString(hasher.Sum(nil)),
		Size:      n,
	}, nil
}

func newHash(algorithm Algorithm) (hash.Hash, error) {
	switch algorithm {
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", algorithm)
	}
}
