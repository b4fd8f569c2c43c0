package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateOrderNumber produces an order number of the form ORD-123456-789.
// taken reports whether a candidate is already in use; generation retries
// until an unused number is found. A unique index on the orders table
// backstops callers whose taken check races.
func GenerateOrderNumber(taken func(string) bool) string {
	for {
		candidate := fmt.Sprintf("ORD-%06d-%03d", randomInt(1_000_000), randomInt(1_000))
		if taken == nil || !taken(candidate) {
			return candidate
		}
	}
}

func randomInt(max int64) int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		// crypto/rand failures are not recoverable at this level
		panic(err)
	}
	return n.Int64()
}
