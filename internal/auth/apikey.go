package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// MaxAPIKeyLength matches the api_keys.api_key column width.
const MaxAPIKeyLength = 100

// GenerateAPIKey returns prefix followed by n random alphanumerics.
func GenerateAPIKey(prefix string, n int) (string, error) {
	if n <= 0 || len(prefix)+n > MaxAPIKeyLength {
		return "", fmt.Errorf("api key length %d out of range", n)
	}
	buf := make([]byte, n)
	max := big.NewInt(int64(len(keyAlphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate api key: %w", err)
		}
		buf[i] = keyAlphabet[idx.Int64()]
	}
	return prefix + string(buf), nil
}
