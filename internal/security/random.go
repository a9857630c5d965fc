package security

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

// codeAlphabet is the character set for opaque codes and refresh tokens.
// Lowercase base-32 without easily confused characters keeps codes short
// enough to type from an email while staying far beyond brute-force reach.
const codeAlphabet = "abcdefghijklmnopqrstuvwxyz234567"

// DefaultCodeLength is the length of generated verification codes and refresh
// tokens. 45 characters of a 32-character alphabet is 225 bits of entropy.
const DefaultCodeLength = 45

// GenerateCode returns a cryptographically random opaque string of length n
// over codeAlphabet. n <= 0 falls back to DefaultCodeLength.
func GenerateCode(n int) (string, error) {
	if n <= 0 {
		n = DefaultCodeLength
	}
	max := big.NewInt(int64(len(codeAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = codeAlphabet[idx.Int64()]
	}
	return string(out), nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
