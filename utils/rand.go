package utils

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	mrand "math/rand"
	"time"
)

func SecureRandomSeed() int64 {
	var seed int64
	randomBytes := make([]byte, 8)
	_, err := rand.Read(randomBytes)
	if err != nil {
		fmt.Println("Error generating random seed:", err)
		return time.Now().UnixNano()
	}
	seed = int64(binary.LittleEndian.Uint64(randomBytes))
	return int64(math.Abs(float64(seed)))
}

// RandPerm returns a shuffled permutation of [0, n), seeded independently
// per call so repeated tests exercise different shapes.
func RandPerm(n int) []int {
	return mrand.New(mrand.NewSource(SecureRandomSeed())).Perm(n)
}

func RandStringKey(length int) string {
	alphabet := make([]byte, 0)
	alphabet = append(alphabet, byte('A'+SecureRandomSeed()%26))
	for i := 0; i < length; i++ {
		alphabet = append(alphabet, byte('a'+SecureRandomSeed()%26))
	}
	return string(alphabet)
}
