package parse

import (
	"regexp"
	"strings"

	"hiroba-client/lib/htmlutil"
	"hiroba-client/lib/scrapers/hiroba/core"
	"hiroba-client/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

var conditionNames = map[string]string{
	"魂ゲージ": "gauge",
	"良":    "good",
	"可":    "ok",
	"不可":   "bad",
	"連打数":  "roll",
}

var uraIconRegex = regexp.MustCompile(`icon_ura_640\.png`)

func danSongDifficulty(src string) core.Difficulty {
	if uraIconRegex.MatchString(src) {
		return core.DifficultyUra
	}
	difficulty, ok := difficultyFromLevelIcon(src)
	// the 5th level icon is not used for songs on the dan pages
	if !ok || difficulty == core.DifficultyUra {
		return ""
	}
	return difficulty
}

func digitsOf(sel *goquery.Selection) int {
	return textutil.Digits(htmlutil.GetTextOf(sel))
}

// DanExamPage parses dan_detail.php for exam danNo, nil on the portal error page.
func DanExamPage(page []byte, danNo int) *DanExam {
	doc := load(page)

	if htmlutil.TrimmedText(doc.Find("h1")) == errorHeader {
		return nil
	}

	exam := &DanExam{
		Title: strings.TrimSpace(htmlutil.Text(doc.Find("#dan_detail div"))),
		DanNo: danNo,
		BestScore: BestScore{
			Conditions:  []Condition{},
			SongRecords: []DanSongRecord{},
		},
		BestConditions: []Condition{},
	}

	if htmlutil.TrimmedText(doc.Find("p.head_error")) == "" {
		exam.Played = true
		status := doc.Find(".total_status")
		exam.BestScore.Score = digitsOf(doc.Find(".total_score_score"))
		exam.BestScore.Good = digitsOf(htmlutil.Nth(status, 0))
		exam.BestScore.Roll = digitsOf(htmlutil.Nth(status, 1))
		exam.BestScore.Ok = digitsOf(htmlutil.Nth(status, 2))
		exam.BestScore.MaxCombo = digitsOf(htmlutil.Nth(status, 3))
		exam.BestScore.Bad = digitsOf(htmlutil.Nth(status, 4))
		exam.BestScore.Hit = digitsOf(htmlutil.Nth(status, 5))
	}

	// the page lists every condition twice, the best score's first and then the
	// best per-condition results
	conditionDivs := doc.Find(".odai_total_song_wrap,.odai_song_wrap")
	total := conditionDivs.Length()
	conditionDivs.Each(func(i int, el *goquery.Selection) {
		var condition Condition
		if el.HasClass("odai_total_song_wrap") {
			spans := el.Find(".odai_total_song_border span")
			condition = Condition{
				Name:     conditionNames[htmlutil.TrimmedText(htmlutil.Nth(spans, 0))],
				Criteria: []int{digitsOf(htmlutil.Nth(spans, 2))},
				Record:   []int{digitsOf(el.Find(".odai_total_song_result"))},
			}
		} else {
			condition = Condition{
				Name:     conditionNames[htmlutil.TrimmedText(el.Find(".odai_song_border_name"))],
				Criteria: []int{},
				Record:   []int{},
			}
			el.Find(".odai_song_border_border").Each(func(_ int, border *goquery.Selection) {
				spans := border.Find("span")
				condition.Criteria = append(condition.Criteria, digitsOf(htmlutil.Nth(spans, 0)))
				condition.Record = append(condition.Record, digitsOf(htmlutil.Nth(spans, 1)))
			})
		}

		if 2*i < total {
			exam.BestScore.Conditions = append(exam.BestScore.Conditions, condition)
		} else {
			exam.BestConditions = append(exam.BestConditions, condition)
		}
	})

	doc.Find("#songList").First().Children().Each(func(_ int, el *goquery.Selection) {
		exam.BestScore.SongRecords = append(exam.BestScore.SongRecords, DanSongRecord{
			Title:      htmlutil.TrimmedText(el.Find(".songName")),
			Difficulty: danSongDifficulty(strings.TrimSpace(htmlutil.Attr(el.Find(".score_open img"), "src"))),
			Good:       digitsOf(el.Find(".good_cnt")),
			Ok:         digitsOf(el.Find(".ok_cnt")),
			Bad:        digitsOf(el.Find(".ng_cnt")),
			Roll:       digitsOf(el.Find(".pound_cnt")),
			MaxCombo:   digitsOf(el.Find(".combo_cnt")),
			Hit:        digitsOf(el.Find(".hit_cnt")),
		})
	})

	return exam
}

// DanExams parses the pages of exams 1..len(pages) in order, error pages are dropped.
func DanExams(pages [][]byte) []DanExam {
	exams := []DanExam{}
	for i, page := range pages {
		exam := DanExamPage(page, i+1)
		if exam == nil {
			continue
		}
		exams = append(exams, *exam)
	}
	return exams
}
