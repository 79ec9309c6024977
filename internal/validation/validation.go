// Package validation checks request parameters before they reach the
// forecast service.
package validation

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

// ErrLocationEmpty is returned when the location is empty or whitespace-only after trim.
var ErrLocationEmpty = errors.New("location is required")

// ErrLocationTooLong is returned when the location name exceeds the maximum length.
var ErrLocationTooLong = errors.New("location too long")

// ErrLocationInvalidChars is returned when the location contains disallowed characters.
var ErrLocationInvalidChars = errors.New("location contains invalid characters")

// ErrInvalidDate is returned when a date parameter is not YYYY-MM-DD.
var ErrInvalidDate = errors.New("date must be in ISO format (YYYY-MM-DD)")

// ErrInvalidDateRange is returned when startDate is after endDate.
var ErrInvalidDateRange = errors.New("startDate must be before or equal to endDate")

// maxLocationLen bounds location names in runes; configured names are short
// slugs, anything longer is garbage input.
const maxLocationLen = 64

// ValidateLocation trims the input and restricts it to characters that occur
// in configured location names: letters, digits, space, comma, hyphen,
// underscore. Returns the trimmed name or an error suitable for a 400.
// Existence in the region config is checked separately.
func ValidateLocation(input string) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	if len(r) == 0 {
		return "", ErrLocationEmpty
	}
	if len(r) > maxLocationLen {
		return "", ErrLocationTooLong
	}
	for _, c := range r {
		if !isAllowedLocationRune(c) {
			return "", ErrLocationInvalidChars
		}
	}
	return s, nil
}

func isAllowedLocationRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', ',', '-', '_':
		return true
	}
	return false
}

// ValidateISODate checks a YYYY-MM-DD date string. The empty string is valid:
// date parameters are optional.
func ValidateISODate(s string) error {
	if s == "" {
		return nil
	}
	if len(s) != 10 {
		return ErrInvalidDate
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// ValidateDateRange checks both bounds and their ordering. ISO date strings
// order lexicographically, so the range check is a string compare.
func ValidateDateRange(startDate, endDate string) error {
	if err := ValidateISODate(startDate); err != nil {
		return err
	}
	if err := ValidateISODate(endDate); err != nil {
		return err
	}
	if startDate != "" && endDate != "" && startDate > endDate {
		return ErrInvalidDateRange
	}
	return nil
}
