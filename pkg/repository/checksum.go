package repository

import (
	"crypto/sha1"
	"encoding/hex"
)

func checksumSHA1(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}
