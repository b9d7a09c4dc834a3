package session

import (
	"time"

	"hiroba-client/lib/scrapers/hiroba/core"
	"hiroba-client/lib/scrapers/hiroba/parse"
)

func (s *Session) Token() string {
	return s.token
}

func (s *Session) NamcoLogined() bool {
	return s.namcoLogined
}

func (s *Session) CardLogined() bool {
	return s.cardLogined
}

// CurrentLogin is the active card, nil when none is known.
func (s *Session) CurrentLogin() *parse.Card {
	if s.currentLogin == nil {
		return nil
	}
	card := *s.currentLogin
	return &card
}

func (s *Session) CardList() []parse.Card {
	if s.cardList == nil {
		return nil
	}
	out := make([]parse.Card, len(s.cardList))
	copy(out, s.cardList)
	return out
}

// Ticket is the last form ticket observed, "" when none is held.
func (s *Session) Ticket() string {
	return s.ticket
}

func (s *Session) ClearRecord(songNo string) (parse.ClearRecord, bool) {
	record, ok := s.clearData[songNo]
	if !ok {
		return parse.ClearRecord{}, false
	}
	return cloneClear(record), true
}

func (s *Session) ScoreRecord(songNo string) (parse.ScoreRecord, bool) {
	record, ok := s.scoreData[songNo]
	if !ok {
		return parse.ScoreRecord{}, false
	}
	return cloneScore(record), true
}

// Snapshot is a copy of a session's state at one point in time.
type Snapshot struct {
	TakenAt      time.Time                    `json:"takenAt" yaml:"takenAt"`
	NamcoLogined bool                         `json:"namcoLogined" yaml:"namcoLogined"`
	CardLogined  bool                         `json:"cardLogined" yaml:"cardLogined"`
	CurrentLogin *parse.Card                  `json:"currentLogin" yaml:"currentLogin"`
	CardList     []parse.Card                 `json:"cardList" yaml:"cardList"`
	ClearData    map[string]parse.ClearRecord `json:"clearData" yaml:"clearData"`
	ScoreData    map[string]parse.ScoreRecord `json:"scoreData" yaml:"scoreData"`
}

// Snapshot copies the session state, later updates to the session do not show
// through. The token and ticket are left out.
func (s *Session) Snapshot() Snapshot {
	clearData := make(map[string]parse.ClearRecord, len(s.clearData))
	for songNo, record := range s.clearData {
		clearData[songNo] = cloneClear(record)
	}
	scoreData := make(map[string]parse.ScoreRecord, len(s.scoreData))
	for songNo, record := range s.scoreData {
		scoreData[songNo] = cloneScore(record)
	}
	return Snapshot{
		TakenAt:      s.client.Now(),
		NamcoLogined: s.namcoLogined,
		CardLogined:  s.cardLogined,
		CurrentLogin: s.CurrentLogin(),
		CardList:     s.CardList(),
		ClearData:    clearData,
		ScoreData:    scoreData,
	}
}

func cloneClear(record parse.ClearRecord) parse.ClearRecord {
	difficulty := make(map[core.Difficulty]parse.Clear, len(record.Difficulty))
	for d, c := range record.Difficulty {
		difficulty[d] = c
	}
	record.Difficulty = difficulty
	return record
}

func cloneScore(record parse.ScoreRecord) parse.ScoreRecord {
	difficulty := make(map[core.Difficulty]parse.DifficultyScore, len(record.Difficulty))
	for d, score := range record.Difficulty {
		difficulty[d] = score
	}
	record.Difficulty = difficulty
	return record
}
