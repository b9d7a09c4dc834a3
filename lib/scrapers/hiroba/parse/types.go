package parse

import (
	"fmt"
	"time"

	"hiroba-client/lib/scrapers/hiroba/core"
)

// Card is one arcade card profile linked to an account.
type Card struct {
	TaikoNumber string `json:"taikoNumber" yaml:"taikoNumber"`
	Nickname    string `json:"nickname" yaml:"nickname"`
	// avatar image reference
	MyDon string `json:"myDon" yaml:"myDon"`
}

type Crown int

const (
	CrownNone Crown = iota
	CrownPlayed
	CrownSilver
	CrownGold
	CrownDonderfull
)

var crownNames = [...]string{"none", "played", "silver", "gold", "donderfull"}

func (c Crown) String() string {
	if c < 0 || int(c) >= len(crownNames) {
		return fmt.Sprintf("Crown(%d)", int(c))
	}
	return crownNames[c]
}

func (c Crown) MarshalText() ([]byte, error) {
	if c < 0 || int(c) >= len(crownNames) {
		return nil, fmt.Errorf("unknown crown %d", int(c))
	}
	return []byte(crownNames[c]), nil
}

func (c *Crown) UnmarshalText(text []byte) error {
	for i, name := range crownNames {
		if name == string(text) {
			*c = Crown(i)
			return nil
		}
	}
	return fmt.Errorf("unknown crown %q", string(text))
}

type Badge int

const (
	BadgeNone Badge = iota
	BadgeWhite
	BadgeBronze
	BadgeSilver
	BadgeGold
	BadgePink
	BadgePurple
	BadgeRainbow
)

var badgeNames = [...]string{"none", "white", "bronze", "silver", "gold", "pink", "purple", "rainbow"}

func (b Badge) String() string {
	if b < 0 || int(b) >= len(badgeNames) {
		return fmt.Sprintf("Badge(%d)", int(b))
	}
	return badgeNames[b]
}

func (b Badge) MarshalText() ([]byte, error) {
	if b < 0 || int(b) >= len(badgeNames) {
		return nil, fmt.Errorf("unknown badge %d", int(b))
	}
	return []byte(badgeNames[b]), nil
}

func (b *Badge) UnmarshalText(text []byte) error {
	for i, name := range badgeNames {
		if name == string(text) {
			*b = Badge(i)
			return nil
		}
	}
	return fmt.Errorf("unknown badge %q", string(text))
}

type Clear struct {
	Crown Crown `json:"crown" yaml:"crown"`
	Badge Badge `json:"badge" yaml:"badge"`
}

type ClearRecord struct {
	Title      string                     `json:"title" yaml:"title"`
	SongNo     string                     `json:"songNo" yaml:"songNo"`
	Difficulty map[core.Difficulty]Clear `json:"difficulty" yaml:"difficulty"`
}

type ScoreCount struct {
	Play            int `json:"play" yaml:"play"`
	Clear           int `json:"clear" yaml:"clear"`
	FullCombo       int `json:"fullCombo" yaml:"fullCombo"`
	DonderFullCombo int `json:"donderFullCombo" yaml:"donderFullCombo"`
}

type DifficultyScore struct {
	Crown    Crown      `json:"crown" yaml:"crown"`
	Badge    Badge      `json:"badge" yaml:"badge"`
	Score    int        `json:"score" yaml:"score"`
	Ranking  int        `json:"ranking" yaml:"ranking"`
	Good     int        `json:"good" yaml:"good"`
	Ok       int        `json:"ok" yaml:"ok"`
	Bad      int        `json:"bad" yaml:"bad"`
	Roll     int        `json:"roll" yaml:"roll"`
	MaxCombo int        `json:"maxCombo" yaml:"maxCombo"`
	Hit      int        `json:"hit" yaml:"hit"`
	Count    ScoreCount `json:"count" yaml:"count"`
}

type ScoreRecord struct {
	Title      string                               `json:"title" yaml:"title"`
	SongNo     string                               `json:"songNo" yaml:"songNo"`
	Difficulty map[core.Difficulty]DifficultyScore `json:"difficulty" yaml:"difficulty"`
}

// ScorePage is what a single score detail page describes.
type ScorePage struct {
	Title      string
	Difficulty core.Difficulty
	Score      DifficultyScore
}

// Condition is one pass criterion of a dan exam, name is one of gauge, good, ok,
// bad or roll ("" when the portal uses a label this package does not know).
type Condition struct {
	Name     string `json:"name" yaml:"name"`
	Criteria []int  `json:"criteria" yaml:"criteria"`
	Record   []int  `json:"record" yaml:"record"`
}

type DanSongRecord struct {
	Title string `json:"title" yaml:"title"`
	// "" when the difficulty icon is not recognized
	Difficulty core.Difficulty `json:"difficulty" yaml:"difficulty"`
	Good       int             `json:"good" yaml:"good"`
	Ok         int             `json:"ok" yaml:"ok"`
	Bad        int             `json:"bad" yaml:"bad"`
	Roll       int             `json:"roll" yaml:"roll"`
	MaxCombo   int             `json:"maxCombo" yaml:"maxCombo"`
	Hit        int             `json:"hit" yaml:"hit"`
}

type BestScore struct {
	Score       int             `json:"score" yaml:"score"`
	Good        int             `json:"good" yaml:"good"`
	Ok          int             `json:"ok" yaml:"ok"`
	Bad         int             `json:"bad" yaml:"bad"`
	Roll        int             `json:"roll" yaml:"roll"`
	MaxCombo    int             `json:"maxCombo" yaml:"maxCombo"`
	Hit         int             `json:"hit" yaml:"hit"`
	Conditions  []Condition     `json:"conditions" yaml:"conditions"`
	SongRecords []DanSongRecord `json:"songRecords" yaml:"songRecords"`
}

type DanExam struct {
	Title          string      `json:"title" yaml:"title"`
	DanNo          int         `json:"danNo" yaml:"danNo"`
	Played         bool        `json:"played" yaml:"played"`
	BestScore      BestScore   `json:"bestScore" yaml:"bestScore"`
	BestConditions []Condition `json:"bestConditions" yaml:"bestConditions"`
}

type RandomMode string

const (
	RandomOff      RandomMode = "off"
	RandomKimagure RandomMode = "kimagure"
	RandomDetarame RandomMode = "detarame"
)

// CompeSong is one song of a competition, nil modifiers were not set by the host.
type CompeSong struct {
	SongName   string          `json:"songName" yaml:"songName"`
	Difficulty core.Difficulty `json:"difficulty" yaml:"difficulty"`
	Speed      *float64        `json:"speed,omitempty" yaml:"speed,omitempty"`
	Doron      *bool           `json:"doron,omitempty" yaml:"doron,omitempty"`
	Abekobe    *bool           `json:"abekobe,omitempty" yaml:"abekobe,omitempty"`
	Random     *RandomMode     `json:"random,omitempty" yaml:"random,omitempty"`
}

type CompeDetail struct {
	Title        string      `json:"title" yaml:"title"`
	HostNickname string      `json:"hostNickname" yaml:"hostNickname"`
	HostTaikoNo  string      `json:"hostTaikoNo" yaml:"hostTaikoNo"`
	TotalEntry   int         `json:"totalEntry" yaml:"totalEntry"`
	StartDate    time.Time   `json:"startDate" yaml:"startDate"`
	EndDate      time.Time   `json:"endDate" yaml:"endDate"`
	SongList     []CompeSong `json:"songList" yaml:"songList"`
}

// SongScore is one song slot of a ranking entry, Score is nil when the entrant
// has not registered a score for it yet.
type SongScore struct {
	Title string `json:"title" yaml:"title"`
	Score *int   `json:"score" yaml:"score"`
}

type RankingEntry struct {
	Rank       int         `json:"rank" yaml:"rank"`
	NickName   string      `json:"nickName" yaml:"nickName"`
	TaikoNo    string      `json:"taikoNo" yaml:"taikoNo"`
	SongScores []SongScore `json:"songScores" yaml:"songScores"`
	TotalScore *int        `json:"totalScore" yaml:"totalScore"`
}

type Competition struct {
	Detail  CompeDetail    `json:"detail" yaml:"detail"`
	Ranking []RankingEntry `json:"ranking" yaml:"ranking"`
}
