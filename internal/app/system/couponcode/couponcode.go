// internal/app/system/couponcode/couponcode.go

// Package couponcode renders coupon codes from the global issuance
// sequence. Codes are upper-case hexadecimal so they stay short,
// human-typeable and monotonically increasing. Uniqueness comes from
// the atomic sequence reservation in the counters store, backed by a
// unique index on the code fields.
package couponcode

import (
	"strconv"
	"strings"
)

// Render formats one sequence value as a coupon code.
func Render(seq int64) string {
	return strings.ToUpper(strconv.FormatInt(seq, 16))
}

// Batch renders n consecutive codes starting at first.
func Batch(first int64, n int) []string {
	codes := make([]string, n)
	for i := 0; i < n; i++ {
		codes[i] = Render(first + int64(i))
	}
	return codes
}
