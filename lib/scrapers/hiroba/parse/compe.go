package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"hiroba-client/lib/chrono"
	"hiroba-client/lib/htmlutil"
	"hiroba-client/lib/scrapers/hiroba/core"
	"hiroba-client/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

const compeInfoSelector = "#compeDetail > ul.festivalThumbList > li > section"

var (
	compeDateRegex   = regexp.MustCompile(`(?:(\d{4})/)?(\d{1,2})/(\d{1,2})(?:\s+(\d{1,2}):(\d{2}))?`)
	levelButtonRegex = regexp.MustCompile(`level_button_(.*)_([0-9])_640\.png`)
)

var speedCodes = map[string]float64{
	"a3":  2.0,
	"a4":  3.0,
	"a5":  4.0,
	"a11": 1.1,
	"a12": 1.2,
	"a13": 1.3,
	"a14": 1.4,
	"a15": 1.5,
	"a16": 1.6,
	"a17": 1.7,
	"a18": 1.8,
	"a19": 1.9,
	"a25": 2.5,
	"a35": 3.5,
}

type compeDate struct {
	year                     int
	hasYear                  bool
	month, day, hour, minute int
}

func parseCompeDate(text string) (compeDate, bool) {
	match := compeDateRegex.FindStringSubmatch(text)
	if match == nil {
		return compeDate{}, false
	}
	atoi := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}
	return compeDate{
		year:    atoi(match[1]),
		hasYear: match[1] != "",
		month:   atoi(match[2]),
		day:     atoi(match[3]),
		hour:    atoi(match[4]),
		minute:  atoi(match[5]),
	}, true
}

func (d compeDate) in(year int) time.Time {
	if d.hasYear {
		year = d.year
	}
	return time.Date(year, time.Month(d.month), d.day, d.hour, d.minute, 0, 0, chrono.JST())
}

// ParseCompeDates reads a competition's start and end dates ("[yyyy/]MM/dd[ hh:mm]").
// A missing start year is ref's year and a missing end year is the start's year.
// When the end falls before the start it is moved one year later.
func ParseCompeDates(start, end string, ref time.Time) (time.Time, time.Time, bool) {
	startDate, ok := parseCompeDate(start)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	endDate, ok := parseCompeDate(end)
	if !ok {
		return time.Time{}, time.Time{}, false
	}

	startTime := startDate.in(ref.In(chrono.JST()).Year())
	endTime := endDate.in(startTime.Year())
	if endTime.Before(startTime) {
		endTime = endTime.AddDate(1, 0, 0)
	}
	return startTime, endTime, true
}

// CompeDetailPage parses compe_detail.php. ref anchors dates rendered without a year.
func CompeDetailPage(page []byte, ref time.Time) *CompeDetail {
	doc := load(page)
	if isErrorPage(doc) {
		return nil
	}

	info := func(n int) string {
		return htmlutil.TrimmedText(doc.Find(compeInfoSelector + " > aside > div > ul > li:nth-child(" + strconv.Itoa(n) + ")"))
	}

	title := strings.TrimSpace(strings.Replace(info(1), "大会名：", "", 1))
	hostNickname := strings.TrimSpace(strings.Replace(info(2), "主催：", "", 1))
	hostTaikoNo := ""
	if parts := strings.Split(htmlutil.Attr(doc.Find(compeInfoSelector+" > a"), "href"), "="); len(parts) > 1 {
		hostTaikoNo = parts[1]
	}
	totalEntryText := strings.Split(strings.Replace(info(3), "人数：", "", 1), "人")[0]
	startText := strings.TrimSpace(stripAll(info(4), "期間：", "～"))
	endText := info(5)

	if title == "" || hostNickname == "" || hostTaikoNo == "" || strings.TrimSpace(totalEntryText) == "" || startText == "" || endText == "" {
		return nil
	}
	startDate, endDate, ok := ParseCompeDates(startText, endText, ref)
	if !ok {
		return nil
	}

	songs := []CompeSong{}
	doc.Find("li.contentBox.mypageSongListArea").Each(func(_ int, li *goquery.Selection) {
		song, ok := compeSong(li)
		if ok {
			songs = append(songs, song)
		}
	})

	return &CompeDetail{
		Title:        title,
		HostNickname: hostNickname,
		HostTaikoNo:  hostTaikoNo,
		TotalEntry:   textutil.Digits(totalEntryText),
		StartDate:    startDate,
		EndDate:      endDate,
		SongList:     songs,
	}
}

// modifier images are in a fixed order: level, speed, doron, abekobe, random
func compeSong(li *goquery.Selection) (CompeSong, bool) {
	imgs := li.Find("img")
	src := func(i int) (string, bool) {
		value := htmlutil.Attr(htmlutil.Nth(imgs, i), "src")
		return value, value != "" && !strings.Contains(value, "blank")
	}

	songName := htmlutil.TrimmedText(li.Find(".songName"))
	levelSrc, _ := src(0)
	var difficulty core.Difficulty
	if match := levelButtonRegex.FindStringSubmatch(levelSrc); match != nil {
		level, _ := strconv.Atoi(match[2])
		difficulty, _ = core.DifficultyFromLevel(level)
	}
	if songName == "" || difficulty == "" {
		return CompeSong{}, false
	}

	song := CompeSong{
		SongName:   songName,
		Difficulty: difficulty,
	}

	if value, ok := src(1); ok {
		speed := 1.0
		if _, rest, found := strings.Cut(value, "image/sp/640/status"); found {
			if parts := strings.Split(rest, "_"); len(parts) > 2 {
				if known, ok := speedCodes[parts[2]]; ok {
					speed = known
				}
			}
		}
		song.Speed = &speed
	}
	if value, ok := src(2); ok {
		doron := !strings.Contains(value, "option_button_doron_normal_")
		song.Doron = &doron
	}
	if value, ok := src(3); ok {
		abekobe := !strings.Contains(value, "option_button_abekobe_normal_")
		song.Abekobe = &abekobe
	}
	if value, ok := src(4); ok {
		random := RandomOff
		switch {
		case strings.Contains(value, "image/sp/640/option_button_kimagure"):
			random = RandomKimagure
		case strings.Contains(value, "image/sp/640/option_button_detarame"):
			random = RandomDetarame
		}
		song.Random = &random
	}

	return song, true
}
