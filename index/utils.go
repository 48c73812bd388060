package index

import (
	"encoding/binary"
	"math"

	"github.com/w-h-a/semcache/fault"
)

func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ValidateVector rejects vectors whose dimension does not match the
// size the index was configured with.
func ValidateVector(vector []float32, size int) error {
	if len(vector) == 0 {
		return fault.New(fault.InvalidInput, "vector is empty")
	}
	if size > 0 && len(vector) != size {
		return fault.Newf(fault.InvalidInput, "vector has %d dimensions, index expects %d", len(vector), size)
	}
	return nil
}

// EncodeVector serializes a vector as little-endian float32 bytes, the
// layout RediSearch expects for FLOAT32 vector fields.
func EncodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func DecodeVector(data []byte) []float32 {
	vector := make([]float32, len(data)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vector
}
