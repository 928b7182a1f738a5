package validate

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	reEmail = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reTier  = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)
	reGTIN  = regexp.MustCompile(`^[0-9A-Za-z-]{1,64}$`)
)

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 254 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// Text trims s and checks it fits in max runes without control characters.
// An empty result is allowed; callers decide whether the field is required.
func Text(s string, max int) (string, bool) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > max {
		return "", false
	}
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return "", false
		}
	}
	return s, true
}

// Q validates a search query: trims and caps it at 100 characters.
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if utf8.RuneCountInString(s) > 100 {
		s = string([]rune(s)[:100])
	}
	return Text(s, 100)
}

// ID parses a positive numeric row id.
func ID(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Int parses an optional positive integer, falling back to def.
func Int(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Price parses an optional non-negative price filter.
func Price(s string) (*float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return nil, false
	}
	return &f, true
}

// Bool accepts the usual truthy spellings; anything else is false.
func Bool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Tier validates a discount tier name such as "standard" or "gold".
func Tier(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	return s, reTier.MatchString(s)
}

func GTIN(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reGTIN.MatchString(s)
}
