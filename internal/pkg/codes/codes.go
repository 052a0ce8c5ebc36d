package codes

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// alphabet avoids the characters people misread on badges and
// printed vouchers: 0/O, 1/I/L and U.
const alphabet = "23456789ABCDEFGHJKMNPQRSTVWXYZ"

func random(n int) string {
	// 256 is not a multiple of len(alphabet); bytes past the largest
	// full multiple are rejected to keep the distribution uniform.
	const limit = 256 - 256%len(alphabet)

	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			panic(fmt.Sprintf("codes: crypto/rand failed: %v", err))
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out)
}

// OrderNumber returns a human-readable order number like BOR-2026-7KQ2MD.
func OrderNumber(year int) string {
	return fmt.Sprintf("BOR-%d-%s", year, random(6))
}

// Voucher returns a voucher code like SPKR-Q2MD7KQ2. The prefix is
// uppercased; an empty prefix yields a bare code.
func Voucher(prefix string) string {
	body := random(8)
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return body
	}
	return prefix + "-" + body
}

// Normalize uppercases and strips the whitespace users paste in with
// discount codes.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
