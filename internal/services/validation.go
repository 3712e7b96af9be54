package services

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// MinAPIKeyLength is the shortest key accepted, in characters.
const MinAPIKeyLength = 10

// ValidateAPIKey checks the length of text as entered, padding included, and
// returns it trimmed. Blank input is rejected as well.
func ValidateAPIKey(text string) (string, error) {
	key := strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < MinAPIKeyLength || key == "" {
		return "", ErrInvalidAPIKey
	}
	return key, nil
}

// ParseAPIID parses a key id. Surrounding whitespace is ignored; anything
// else that is not a base-10 integer yields ErrInvalidAPIID.
func ParseAPIID(text string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, ErrInvalidAPIID
	}
	return id, nil
}
