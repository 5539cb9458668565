package service

import (
	"math/rand/v2"
	"net/url"
	"regexp"
	"strings"
)

const (
	codeAlphabet          = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength            = 6
	maxAllocationAttempts = 10
)

var aliasRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)

// RandomSource picks an index in [0, n). Codes only need to be uniform, not
// unpredictable.
type RandomSource interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int {
	return rand.IntN(n)
}

// DefaultRandomSource is safe for concurrent use.
var DefaultRandomSource RandomSource = globalRand{}

// GenerateCode draws codeLength symbols independently from codeAlphabet.
func GenerateCode(rng RandomSource) string {
	var b strings.Builder
	b.Grow(codeLength)
	for i := 0; i < codeLength; i++ {
		b.WriteByte(codeAlphabet[rng.IntN(len(codeAlphabet))])
	}
	return b.String()
}

func ValidateAlias(alias string) bool {
	return aliasRegex.MatchString(alias)
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(raw string) (*url.URL, bool) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return parsed, false
	}
	if parsed.Host == "" {
		return parsed, false
	}
	return parsed, true
}
