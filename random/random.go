package random

import (
	crand "crypto/rand"
	"fmt"
	"math/big"
	mrand "math/rand"
	"time"
)

const charset = "0123456789abcdefghijklmnopqrstuvwxyz"

func String(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[mrand.Intn(len(charset))]
	}
	return string(b)
}

func StringSecure(length int) (string, error) {
	b := make([]byte, length)
	l := big.NewInt(int64(len(charset)))
	for i := range b {
		num, err := crand.Int(crand.Reader, l)
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}

// Reference builds a payment reference such as "booking_1700000000000_k3j9x0a2b".
// The millisecond timestamp keeps references sortable; the suffix keeps two
// references minted in the same millisecond apart.
func Reference(prefix string) (string, error) {
	suffix, err := StringSecure(9)
	if err != nil {
		return "", fmt.Errorf("generating reference suffix: %w", err)
	}
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), suffix), nil
}
