package embedder

import "github.com/w-h-a/semcache/fault"

// Validate enforces the shape agreed with the embedding provider: a
// response of the wrong dimensionality is a contract violation, never
// truncated or padded.
func Validate(vector []float32, dimensions int) error {
	if len(vector) == 0 {
		return fault.New(fault.ProviderContractViolation, "provider returned an empty embedding")
	}
	if dimensions > 0 && len(vector) != dimensions {
		return fault.Newf(fault.ProviderContractViolation, "provider returned %d dimensions, expected %d", len(vector), dimensions)
	}
	return nil
}
