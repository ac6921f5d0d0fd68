package order

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	numberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numberSuffix   = 9
)

var alphabetSize = big.NewInt(int64(len(numberAlphabet)))

// NewOrderNumber formats ORD-<unix millis>-<9 uppercase base36 chars>.
func NewOrderNumber(now time.Time) (string, error) {
	suffix := make([]byte, numberSuffix)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("order number: %w", err)
		}
		suffix[i] = numberAlphabet[n.Int64()]
	}
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix), nil
}
