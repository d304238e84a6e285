package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// randomSuffix returns n random base36 characters.
func randomSuffix(n int) string {
	buf := make([]byte, n)
	limit := big.NewInt(int64(len(base36)))
	for i := range buf {
		v, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic(fmt.Sprintf("crypto/rand: %v", err))
		}
		buf[i] = base36[v.Int64()]
	}
	return string(buf)
}

// newID builds ids of the form PREFIX-<unix millis>-<random>.
func newID(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), randomSuffix(9))
}

// displayTxHash is a cosmetic provenance token shown in the UI. It is
// random and carries no cryptographic meaning.
func displayTxHash() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return "0x" + hex.EncodeToString(buf) + "..."
}
