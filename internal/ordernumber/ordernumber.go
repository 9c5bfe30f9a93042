// Package ordernumber implements the human-facing order identifier scheme:
// YYYY/#### with a four digit sequence that restarts at 0001 every calendar
// year. Serialization of concurrent allocations is the order repository's
// job; this package only knows the format.
package ordernumber

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var pattern = regexp.MustCompile(`^\d{4}/\d{4}$`)

// Prefix returns the number prefix for a year, e.g. "2025/".
func Prefix(year int) string {
	return fmt.Sprintf("%04d/", year)
}

// First is the first number issued in a year.
func First(year int) string {
	return fmt.Sprintf("%04d/0001", year)
}

// Next derives the number following last within the given year. An empty or
// foreign-year last value resets the sequence to 0001.
func Next(year int, last string) (string, error) {
	if last == "" || !strings.HasPrefix(last, Prefix(year)) {
		return First(year), nil
	}
	if !Valid(last) {
		return "", fmt.Errorf("malformed order number %q", last)
	}
	seq, err := strconv.Atoi(last[5:])
	if err != nil {
		return "", fmt.Errorf("malformed order number %q: %w", last, err)
	}
	if seq >= 9999 {
		return "", fmt.Errorf("order number sequence exhausted for %d", year)
	}
	return fmt.Sprintf("%04d/%04d", year, seq+1), nil
}

// Valid reports whether s matches the YYYY/#### format.
func Valid(s string) bool {
	return pattern.MatchString(s)
}
