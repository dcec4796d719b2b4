// Package index builds the lexical and semantic article indexes the search
// layer ranks over. Both indexes share one article corpus derived from the
// document store and are immutable once built.
package index

import (
	"regexp"
	"strings"
)

// tokenPattern matches ASCII alphanumeric runs and single CJK ideographs.
// Treating each ideograph as its own token keeps the lexical index free of a
// dictionary dependency; compound terms still match through phrase overlap.
var tokenPattern = regexp.MustCompile(`[A-Za-z0-9]+|[\x{4e00}-\x{9fff}]`)

// Tokenize splits text into lowercase search tokens. Latin-script words and
// digit runs stay whole; every CJK ideograph becomes its own token.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}
