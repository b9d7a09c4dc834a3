package parse

import (
	"net/url"
	"strings"

	"hiroba-client/lib/htmlutil"
	"hiroba-client/lib/scrapers/hiroba/core"

	"github.com/PuerkitoBio/goquery"
)

// ClearData parses one score_list.php page.
func ClearData(page []byte) []ClearRecord {
	return ClearDataPages([][]byte{page})
}

// ClearDataPages folds several score_list.php pages into one record per song, in
// order of first appearance. Later pages only add or overwrite difficulties.
func ClearDataPages(pages [][]byte) []ClearRecord {
	merged := map[string]ClearRecord{}
	order := []string{}
	for _, page := range pages {
		for _, record := range clearPage(page) {
			if _, ok := merged[record.SongNo]; !ok {
				order = append(order, record.SongNo)
			}
			MergeClear(merged, record)
		}
	}

	out := make([]ClearRecord, len(order))
	for i, songNo := range order {
		out[i] = merged[songNo]
	}
	return out
}

// MergeClear folds records into dst keyed by song number. The first title seen is
// kept, difficulties are added or overwritten and never removed.
func MergeClear(dst map[string]ClearRecord, records ...ClearRecord) {
	for _, record := range records {
		existing, ok := dst[record.SongNo]
		if !ok {
			existing = ClearRecord{
				Title:  record.Title,
				SongNo: record.SongNo,
			}
		}
		difficulty := make(map[core.Difficulty]Clear, len(existing.Difficulty)+len(record.Difficulty))
		for d, c := range existing.Difficulty {
			difficulty[d] = c
		}
		for d, c := range record.Difficulty {
			difficulty[d] = c
		}
		existing.Difficulty = difficulty
		dst[record.SongNo] = existing
	}
}

func songNoFromHref(href string) string {
	link, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return link.Query().Get("song_no")
}

func clearPage(page []byte) []ClearRecord {
	doc := load(page)

	records := []ClearRecord{}
	doc.Find(".contentBox").Each(func(_ int, box *goquery.Selection) {
		title := htmlutil.TrimmedText(box.Find(".songNameArea span"))
		songNo := songNoFromHref(htmlutil.Attr(box.Find("a"), "href"))
		if title == "" || songNo == "" {
			return
		}

		difficulty := map[core.Difficulty]Clear{}
		box.Find(".buttonList img").Each(func(_ int, img *goquery.Selection) {
			src, _ := img.Attr("src")
			hints := strings.Split(stripAll(src, "image/sp/640/crown_button_", "_640.png"), "_")
			crownHint := hints[0]
			badgeHint := ""
			if len(hints) > 1 {
				badgeHint = hints[1]
			}
			// not played
			if src == "" || crownHint == "" || crownHint == "none" {
				return
			}

			class, _ := img.Attr("class")
			classes := strings.Split(class, " ")
			difficultyHint := ""
			if len(classes) > 1 {
				difficultyHint = classes[1]
			}

			difficulty[difficultyFromClassHint(difficultyHint)] = Clear{
				Crown: clearCrownTokens[crownHint],
				Badge: badgeTokens[badgeHint],
			}
		})

		records = append(records, ClearRecord{
			Title:      title,
			SongNo:     songNo,
			Difficulty: difficulty,
		})
	})
	return records
}
