package textutil

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"
)

var nonDigits = regexp.MustCompile(`[^0-9]`)

// Digits strips everything that is not 0-9 and parses the rest, an empty result is 0.
func Digits(s string) int {
	stripped := nonDigits.ReplaceAllString(s, "")
	if stripped == "" {
		return 0
	}
	n, err := strconv.Atoi(stripped)
	if err != nil {
		return 0
	}
	return n
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

type Match struct {
	Index int
	Score float64
}

// MatchTitles ranks candidates against query by Jaro-Winkler similarity of their
// normalized forms. Only matches scoring at least threshold are returned, best first.
func MatchTitles(query string, candidates []string, threshold float64) []Match {
	normalizedQuery := NormalizeName(query)
	var matches []Match
	for i, c := range candidates {
		normalized := NormalizeName(c)
		var score float64
		switch {
		case normalized == normalizedQuery:
			score = 1
		case normalizedQuery != "" && strings.Contains(normalized, normalizedQuery):
			score = 0.99
		default:
			score = matchr.JaroWinkler(normalizedQuery, normalized, false)
		}
		if score >= threshold {
			matches = append(matches, Match{Index: i, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}
