package domain

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const AccountNumberLength = 26

// GenerateAccountNumber builds a numeric account number from the current
// millisecond timestamp padded with random digits.
func GenerateAccountNumber() string {
	return accountNumberAt(time.Now())
}

func accountNumberAt(t time.Time) string {
	prefix := strconv.FormatInt(t.UnixMilli(), 10)
	if len(prefix) > AccountNumberLength {
		prefix = prefix[len(prefix)-AccountNumberLength:]
	}

	var b strings.Builder
	b.Grow(AccountNumberLength)
	b.WriteString(prefix)
	for b.Len() < AccountNumberLength {
		b.WriteByte(byte('0' + rand.IntN(10)))
	}
	return b.String()
}

// IsAccountNumber reports whether s has the shape of an account number.
func IsAccountNumber(s string) bool {
	if len(s) != AccountNumberLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
