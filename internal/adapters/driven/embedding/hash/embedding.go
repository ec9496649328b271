// Package hash provides an offline embedding service based on feature hashing.
//
// Each lowercase word token is hashed with an 8-byte BLAKE2b digest into one
// signed bucket of a fixed-size vector which is then L2-normalised. The output is fully
// deterministic, so seed data embedded with this service stays comparable
// with query vectors across runs and machines.
package hash

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions is the vector size when none is configured.
const DefaultDimensions = 256

// ModelName is reported for diagnostics.
const ModelName = "blake2b-feature-hash"

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9_]+`)

// EmbeddingService hashes tokens into a fixed-size vector.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a hashing embedder with the given dimensions.
func NewEmbeddingService(dimensions int) (*EmbeddingService, error) {
	if dimensions == 0 {
		dimensions = DefaultDimensions
	}
	if dimensions < 0 {
		return nil, fmt.Errorf("hash: dimensions must be positive: %w", domain.ErrConfiguration)
	}
	return &EmbeddingService{dimensions: dimensions}, nil
}

// Embed generates a vector embedding for the given text. Text with no word
// tokens yields the zero vector.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.vector(text), nil
}

// EmbedBatch embeds each text in order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = s.vector(text)
	}
	return out, nil
}

func (s *EmbeddingService) vector(text string) []float32 {
	acc := make([]float64, s.dimensions)
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		sum := digest(token)
		idx := binary.BigEndian.Uint32(sum[:4]) % uint32(s.dimensions) //nolint:gosec
		if sum[4]%2 == 0 {
			acc[idx]++
		} else {
			acc[idx]--
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	out := make([]float32, s.dimensions)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		out[i] = float32(v / norm)
	}
	return out
}

// digest is an 8-byte BLAKE2b hash. The digest size is part of the BLAKE2b
// parameter block, so this is not a prefix of the 64-byte sum.
func digest(token string) []byte {
	h, err := blake2b.New(8, nil)
	if err != nil {
		panic(err) // unreachable: size and key are constant and valid
	}
	h.Write([]byte(token))
	return h.Sum(nil)
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return ModelName
}

// Ping always succeeds; the service has no remote dependency.
func (s *EmbeddingService) Ping(context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
