// Package vector implements the deterministic text-to-vector codec used for
// semantic search. Vectors are produced locally without any external model:
// concepts and source words are hashed into a fixed number of dimensions and
// the result is normalized to unit length, so cosine distance reduces to a
// dot product.
package vector

import (
	"math"
	"regexp"
	"strings"
)

// Dimensions is the fixed embedding dimension for all vectors.
const Dimensions = 768

const (
	// spreadCount is how many dimensions each concept contributes to.
	spreadCount = 20
	// spreadStride offsets successive dimensions of a concept.
	spreadStride = 37
	// sourceWordWeight is added for each source-text word occurrence.
	sourceWordWeight = 0.3
	// maxSourceWords caps the source-text word pass.
	maxSourceWords = 100
)

var nonWord = regexp.MustCompile(`[^\w\s]`)

// Hash returns a deterministic non-negative polynomial rolling hash of the
// token. It only needs to disperse tokens across dimensions; there is no
// cryptographic requirement.
func Hash(token string) uint32 {
	var h uint32
	for _, r := range token {
		h = h*31 + uint32(r)
	}
	return h
}

// ConceptsToVector builds a unit vector from a ranked concept list and the
// source text it was extracted from. Earlier concepts carry more weight, and
// concepts that literally appear in the source get full credit while purely
// inferred ones get half.
func ConceptsToVector(concepts []string, sourceText string) []float32 {
	vec := make([]float32, Dimensions)
	lowerSource := strings.ToLower(sourceText)

	for _, concept := range concepts {
		h := Hash(concept)
		presence := float32(0.5)
		if strings.Contains(lowerSource, strings.ToLower(concept)) {
			presence = 1.0
		}
		for i := 0; i < spreadCount; i++ {
			dim := (h + uint32(i*spreadStride)) % Dimensions
			weight := float32(1) / float32(i+1)
			vec[dim] += weight * presence
		}
	}

	idx := 0
	for _, word := range strings.Fields(sourceText) {
		if len(word) <= 3 {
			continue
		}
		if idx >= maxSourceWords {
			break
		}
		dim := (Hash(word) + uint32(idx)) % Dimensions
		vec[dim] += sourceWordWeight
		idx++
	}

	return normalize(vec)
}

// SimpleEmbedding produces a unit vector from raw text alone. It is the
// dependency-free fallback used when concept extraction is unavailable, so it
// must never fail for non-empty input.
func SimpleEmbedding(text string) []float32 {
	vec := make([]float32, Dimensions)

	cleaned := nonWord.ReplaceAllString(strings.ToLower(text), "")
	var words []string
	for _, w := range strings.Fields(cleaned) {
		if len(w) > 2 {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return vec
	}

	scale := float32(1 / math.Sqrt(float64(len(words))))
	for idx, word := range words {
		for i, c := range word {
			dim := (uint32(c) + uint32(idx) + uint32(i)) % Dimensions
			vec[dim] += float32(c) / 255 * scale
		}
	}

	return normalize(vec)
}

// Norm returns the L2 norm of the vector.
func Norm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Dot returns the dot product of two equal-length vectors. For unit vectors
// this equals their cosine similarity.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// normalize scales vec to unit L2 norm in place. An all-zero vector is
// returned unchanged rather than dividing by zero.
func normalize(vec []float32) []float32 {
	norm := Norm(vec)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
