package parse

import (
	"regexp"
	"strings"

	"hiroba-client/lib/htmlutil"
	"hiroba-client/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

const unscored = "スコア未登録"

var mydonRegex = regexp.MustCompile(`mydon_([0-9]*)$`)

// parseScoreText returns nil for the unscored placeholder.
func parseScoreText(text string) *int {
	text = strings.TrimSpace(strings.Replace(text, "点", "", 1))
	if text == "" || text == unscored {
		return nil
	}
	score := textutil.Digits(text)
	return &score
}

// CompeRanking parses compe_ranking.php, ok is false on the portal error page.
func CompeRanking(page []byte) ([]RankingEntry, bool) {
	doc := load(page)
	if isErrorPage(doc) {
		return nil, false
	}

	entries := []RankingEntry{}
	doc.Find(".festivalRankThumbList").Each(func(_ int, el *goquery.Selection) {
		rankText := strings.Replace(htmlutil.TrimmedText(el.Find(".compeRankingText")), "位", "", 1)
		lines := strings.Split(htmlutil.TrimmedText(el.Find(".player-info div")), "\n")
		nickname := strings.TrimSpace(lines[0])
		taikoNo := firstSubmatch(mydonRegex, htmlutil.Attr(el.Find(".player-info img"), "src"))

		if rankText == "" || nickname == "" || taikoNo == "" {
			return
		}

		entry := RankingEntry{
			Rank:       textutil.Digits(rankText),
			NickName:   nickname,
			TaikoNo:    taikoNo,
			SongScores: []SongScore{},
		}
		if len(lines) > 1 {
			entry.TotalScore = parseScoreText(lines[1])
		}

		el.Find(".block > div").Each(func(_ int, block *goquery.Selection) {
			title := htmlutil.TrimmedText(block.Find("p:nth-last-child(3)"))
			scoreText := htmlutil.TrimmedText(block.Find("p:nth-last-child(2)"))
			if title == "" || scoreText == "" {
				return
			}
			entry.SongScores = append(entry.SongScores, SongScore{
				Title: title,
				Score: parseScoreText(scoreText),
			})
		})

		entries = append(entries, entry)
	})
	return entries, true
}
