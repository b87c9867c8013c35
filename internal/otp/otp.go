package otp

import "math/rand/v2"

// GenerateCode returns a random 5-digit verification code. Codes are drawn
// from [10000, 99999], so the first digit is always 1-9.
func GenerateCode() int {
	return rand.IntN(90000) + 10000
}
