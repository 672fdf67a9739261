// Package util holds small helpers with no better home
package util

import (
	"math/rand"
	"time"
	"unsafe"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const (
	idxBits = 6              // bits needed to index the alphabet
	idxMask = 1<<idxBits - 1 // low idxBits set
	idxMax  = 63 / idxBits   // indices drawn per Int63 call
)

var src = rand.NewSource(time.Now().UnixNano())

// RandStr returns a random letter string of length n. Request IDs only
// need to be unique-ish within a log window, so this trades crypto
// randomness for drawing several indices per Int63 call
func RandStr(n int) string {
	b := make([]byte, n)
	for i, cache, remain := n-1, src.Int63(), idxMax; i >= 0; {
		if remain == 0 {
			cache, remain = src.Int63(), idxMax
		}
		if idx := int(cache & idxMask); idx < len(alphabet) {
			b[i] = alphabet[idx]
			i--
		}
		cache >>= idxBits
		remain--
	}

	return *(*string)(unsafe.Pointer(&b))
}
