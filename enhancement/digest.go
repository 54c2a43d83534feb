package enhancement

import (
	"encoding/hex"
	"encoding/json"

	"legalcosts-backend/models"

	"golang.org/x/crypto/blake2b"
)

// ProtectedDigest fingerprints a result's protected fields. Two results with
// the same digest carry identical protected values.
func ProtectedDigest(r *models.CalculationResult) string {
	values := make(map[string]interface{})
	for _, name := range r.ProtectedFieldNames() {
		if v, ok := r.ProtectedValue(name); ok {
			values[name] = v
		}
	}
	// encoding/json sorts map keys, so the encoding is canonical.
	data, err := json.Marshal(values)
	if err != nil {
		return ""
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
