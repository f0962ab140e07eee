package utils

import (
	"log"

	"github.com/pkg/errors"
)

var (
	ErrSegmentCapacity = errors.New("segment capacity must be positive")
	ErrPoolExhausted   = errors.New("pool handle space exhausted")
	ErrNilHandle       = errors.New("nil handle dereference")
	ErrDoubleFree      = errors.New("slot is already on the free list")
)

// Panic on non-nil err
func Panic(err error) {
	if err != nil {
		panic(err)
	}
}

// CondPanic raises err when condition holds
func CondPanic(condition bool, err error) {
	if condition {
		Panic(err)
	}
}

// AssertTrue aborts on false
func AssertTrue(b bool) {
	if !b {
		log.Fatalf("%+v", errors.Errorf("Assert failed"))
	}
}
