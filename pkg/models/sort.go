package models

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CompareNames orders names the way file managers do: case-insensitive,
// with runs of digits compared by numeric value ("file2" < "file10").
// Names equal under that rule fall back to a byte comparison.
func CompareNames(a, b string) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ra, wa := utf8.DecodeRuneInString(a[i:])
		rb, wb := utf8.DecodeRuneInString(b[j:])

		if isDigit(ra) && isDigit(rb) {
			ea := digitRunEnd(a, i)
			eb := digitRunEnd(b, j)
			if c := compareDigitRuns(a[i:ea], b[j:eb]); c != 0 {
				return c
			}
			i, j = ea, eb
			continue
		}

		la, lb := unicode.ToLower(ra), unicode.ToLower(rb)
		if la != lb {
			if la < lb {
				return -1
			}
			return 1
		}
		i += wa
		j += wb
	}

	switch {
	case len(a)-i < len(b)-j:
		return -1
	case len(a)-i > len(b)-j:
		return 1
	}
	return strings.Compare(a, b)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func digitRunEnd(s string, start int) int {
	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return end
}

// compareDigitRuns compares two decimal strings by value without overflow
func compareDigitRuns(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
