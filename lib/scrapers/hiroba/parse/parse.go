// Package parse turns portal pages into records. Every function is total: markup
// that is missing yields an empty or nil result, never an error.
package parse

import (
	"bytes"
	"regexp"
	"strings"

	"hiroba-client/lib/htmlutil"
	"hiroba-client/lib/scrapers/hiroba/core"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// the portal's generic error page header
const errorHeader = "エラー"

func load(page []byte) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(page))
	if err != nil {
		return goquery.NewDocumentFromNode(&html.Node{Type: html.DocumentNode})
	}
	return doc
}

func isErrorPage(doc *goquery.Document) bool {
	header := htmlutil.TrimmedText(doc.Find("header > h1"))
	return header == "" || header == errorHeader
}

var clearCrownTokens = map[string]Crown{
	"played":     CrownPlayed,
	"silver":     CrownSilver,
	"gold":       CrownGold,
	"donderfull": CrownDonderfull,
}

// crown_large_<n>_640.png
var scoreCrownTokens = map[string]Crown{
	"0": CrownPlayed,
	"1": CrownSilver,
	"2": CrownGold,
	"3": CrownDonderfull,
}

// best_score_rank_<n>_640.png and the second token of crown_button_*
var badgeTokens = map[string]Badge{
	"2": BadgeWhite,
	"3": BadgeBronze,
	"4": BadgeSilver,
	"5": BadgeGold,
	"6": BadgePink,
	"7": BadgePurple,
	"8": BadgeRainbow,
}

// difficultyFromClassHint checks in a fixed order, oni_ura must win over the
// plain oni fallback.
func difficultyFromClassHint(hint string) core.Difficulty {
	switch {
	case strings.Contains(hint, "easy"):
		return core.DifficultyEasy
	case strings.Contains(hint, "normal"):
		return core.DifficultyNormal
	case strings.Contains(hint, "hard"):
		return core.DifficultyHard
	case strings.Contains(hint, "oni_ura"):
		return core.DifficultyUra
	default:
		return core.DifficultyOni
	}
}

var levelIconRegex = regexp.MustCompile(`level_icon_([0-9])_640\.png`)

func difficultyFromLevelIcon(src string) (core.Difficulty, bool) {
	match := levelIconRegex.FindStringSubmatch(src)
	if match == nil {
		return "", false
	}
	return core.DifficultyFromLevel(int(match[1][0] - '0'))
}

func stripAll(s string, tokens ...string) string {
	for _, t := range tokens {
		s = strings.ReplaceAll(s, t, "")
	}
	return s
}
