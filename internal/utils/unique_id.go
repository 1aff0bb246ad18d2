package utils

import (
	"fmt"
	"math/rand"
	"strings"
	"unicode"
)

const fallbackPrefix = "USER"

// GenerateUniqueID generates a unique ID in format #WORD-123
func GenerateUniqueID(name string) string {
	// First word of the name, letters and digits only
	prefix := ""
	for _, word := range strings.Fields(name) {
		prefix = strings.Map(func(r rune) rune {
			if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
				return unicode.ToUpper(r)
			}
			return -1
		}, word)
		if prefix != "" {
			break
		}
	}
	if prefix == "" {
		prefix = fallbackPrefix
	}
	if len(prefix) > 6 {
		prefix = prefix[:6]
	}

	number := rand.Intn(900) + 100 // 100-999

	return fmt.Sprintf("#%s-%d", prefix, number)
}

// ValidateUniqueID validates the format of a unique ID
func ValidateUniqueID(uniqueID string) bool {
	if len(uniqueID) < 5 || uniqueID[0] != '#' {
		return false
	}

	parts := strings.Split(uniqueID[1:], "-")
	if len(parts) != 2 || parts[0] == "" || len(parts[1]) != 3 {
		return false
	}
	for _, r := range parts[1] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
