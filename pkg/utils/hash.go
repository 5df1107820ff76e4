package utils

import (
	"crypto/md5"
	"encoding/binary"
)

// HashUint64 maps a string onto a stable 64-bit value. Used where a
// reproducible pseudo-random figure must be derived from text.
func HashUint64(input string) uint64 {
	hash := md5.Sum([]byte(input))
	return binary.BigEndian.Uint64(hash[:8])
}
