package utils

import (
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	B = 1
	K = 1024 * B
	M = 1024 * K
	G = 1024 * M
)

var sizeUnits = map[byte]int64{'b': B, 'k': K, 'm': M, 'g': G}

// ParseSize converts a human friendly size such as "512", "4k" or "1G" into
// bytes. The suffix is case-insensitive and uses binary multipliers.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty size")
	}

	multiplier := int64(1)
	digits := s
	last := s[len(s)-1]
	if last < '0' || last > '9' {
		unit, ok := sizeUnits[lower(last)]
		if !ok {
			return 0, errors.Errorf("invalid size format: %s", s)
		}
		multiplier = unit
		digits = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid size format: %s", s)
	}
	if n < 0 {
		return 0, errors.Errorf("negative size: %s", s)
	}
	if n > math.MaxInt64/multiplier {
		return 0, errors.Errorf("size overflows: %s", s)
	}
	return n * multiplier, nil
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

const printable = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// FillPrintable overwrites buf with alphanumeric bytes drawn from a
// generator seeded with seed. Equal seeds give equal content.
func FillPrintable(buf []byte, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	for k := range buf {
		buf[k] = printable[rng.Intn(len(printable))]
	}
}
