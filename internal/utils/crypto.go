// internal/utils/crypto.go
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// PaymentCodeLength is the number of characters in an issued payment code.
const PaymentCodeLength = 12

// GeneratePaymentCode returns a 12 character uppercase code drawn from a
// random 128-bit value.
func GeneratePaymentCode() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(raw[:PaymentCodeLength])
}

// NormalizePaymentCode trims surrounding whitespace and uppercases the code.
func NormalizePaymentCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func HashString(input string) string {
	hasher := sha256.New()
	hasher.Write([]byte(input))
	return hex.EncodeToString(hasher.Sum(nil))
}
