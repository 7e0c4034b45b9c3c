package utility

import (
	"errors"
	"math"
)

var ErrIntegerOverflow = errors.New("integer overflow")

func U64ToI64(i uint64) (int64, error) {
	if i <= uint64(math.MaxInt64) {
		return int64(i), nil // #nosec G115
	}
	return 0, ErrIntegerOverflow
}

func I64ToI32(i int64) (int32, error) {
	if i >= math.MinInt32 && i <= math.MaxInt32 {
		return int32(i), nil // #nosec G115
	}
	return 0, ErrIntegerOverflow
}
