package security

import (
	"fmt"
	"strings"
)

// GenerateOTP returns a numeric one-time code of the requested length using
// the platform CSPRNG. Leading zeros are kept.
func GenerateOTP(digits int) (string, error) {
	if digits <= 0 {
		return "", fmt.Errorf("otp length must be positive")
	}
	var b strings.Builder
	b.Grow(digits)
	for i := 0; i < digits; i++ {
		n, err := randInt(10)
		if err != nil {
			return "", fmt.Errorf("generate otp: %w", err)
		}
		b.WriteByte(byte('0' + n))
	}
	return b.String(), nil
}
