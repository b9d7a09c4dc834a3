package parse

import (
	"regexp"

	"hiroba-client/lib/htmlutil"
	"hiroba-client/lib/scrapers/hiroba/core"
	"hiroba-client/lib/textutil"
)

const pageNotFound = "指定されたページは存在しません。"

var (
	crownLargeRegex = regexp.MustCompile(`crown_large_([0-9a-z]+)_640\.png`)
	bestRankRegex   = regexp.MustCompile(`best_score_rank_([0-9]+)_640\.png`)
)

func firstSubmatch(re *regexp.Regexp, s string) string {
	match := re.FindStringSubmatch(s)
	if match == nil {
		return ""
	}
	return match[1]
}

// ScoreDetail parses one score_detail.php page. ok is false when the page does
// not exist or lacks the song title or level icon. Counters stay 0 when the
// status block is absent (never played).
func ScoreDetail(page []byte) (ScorePage, bool) {
	doc := load(page)

	if htmlutil.TrimmedText(doc.Find("#content")) == pageNotFound {
		return ScorePage{}, false
	}

	title := htmlutil.TrimmedText(doc.Find(".songNameTitleScore"))
	difficulty, ok := difficultyFromLevelIcon(htmlutil.Attr(doc.Find(".level"), "src"))
	if title == "" || !ok {
		return ScorePage{}, false
	}

	result := ScorePage{
		Title:      title,
		Difficulty: difficulty,
	}

	if doc.Find(".scoreDetailStatus").Length() == 0 {
		return result, true
	}

	digits := func(selector string) int {
		return textutil.Digits(htmlutil.TrimmedText(doc.Find(selector)))
	}

	crownSrc := htmlutil.Attr(doc.Find(".scoreDetailStatus .crown"), "src")
	badgeSrc := htmlutil.Attr(doc.Find(".scoreDetailStatus .best_score_icon"), "src")
	result.Score = DifficultyScore{
		Crown:    scoreCrownTokens[firstSubmatch(crownLargeRegex, crownSrc)],
		Badge:    badgeTokens[firstSubmatch(bestRankRegex, badgeSrc)],
		Score:    digits(".high_score"),
		Ranking:  digits(".ranking"),
		Good:     digits(".good_cnt"),
		Ok:       digits(".ok_cnt"),
		Bad:      digits(".ng_cnt"),
		Roll:     digits(".pound_cnt"),
		MaxCombo: digits(".combo_cnt"),
		Hit:      digits(".hit_cnt"),
		Count: ScoreCount{
			Play:            digits(".stage_cnt"),
			Clear:           digits(".clear_cnt"),
			FullCombo:       digits(".full_combo_cnt"),
			DonderFullCombo: digits(".dondafull_combo_cnt"),
		},
	}
	return result, true
}

// ScoreData parses one difficulty page of a song, nil when the page is not valid.
func ScoreData(songNo string, page []byte) *ScoreRecord {
	return ScoreDataPages(songNo, [][]byte{page})
}

// ScoreDataPages folds the difficulty pages of one song. The record is nil only
// when no page is valid. Difficulties without a crown are left out of the map.
func ScoreDataPages(songNo string, pages [][]byte) *ScoreRecord {
	var record *ScoreRecord
	for _, page := range pages {
		detail, ok := ScoreDetail(page)
		if !ok {
			continue
		}
		if record == nil {
			record = &ScoreRecord{
				Title:      detail.Title,
				SongNo:     songNo,
				Difficulty: map[core.Difficulty]DifficultyScore{},
			}
		}
		if detail.Score.Crown == CrownNone {
			continue
		}
		record.Difficulty[detail.Difficulty] = detail.Score
	}
	return record
}

// MergeScore folds records into dst keyed by song number, see MergeClear.
func MergeScore(dst map[string]ScoreRecord, records ...ScoreRecord) {
	for _, record := range records {
		existing, ok := dst[record.SongNo]
		if !ok {
			existing = ScoreRecord{
				Title:  record.Title,
				SongNo: record.SongNo,
			}
		}
		difficulty := make(map[core.Difficulty]DifficultyScore, len(existing.Difficulty)+len(record.Difficulty))
		for d, s := range existing.Difficulty {
			difficulty[d] = s
		}
		for d, s := range record.Difficulty {
			difficulty[d] = s
		}
		existing.Difficulty = difficulty
		dst[record.SongNo] = existing
	}
}
