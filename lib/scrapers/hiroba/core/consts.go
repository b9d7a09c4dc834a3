package core

import (
	"fmt"
	"strings"
)

const (
	TokenCookieName = "_token_v2"
	TicketFieldName = "_tckt"

	// number of dan exams the portal exposes, dan_detail.php?dan=1..DanExamCount
	DanExamCount = 19
)

type Genre int

const (
	GenrePops Genre = iota + 1
	GenreAnime
	GenreKids
	GenreVocaloid
	GenreGame
	GenreNamco
	GenreVariety
	GenreClassic
)

// Genres lists every genre in the order the portal numbers them.
var Genres = []Genre{
	GenrePops,
	GenreAnime,
	GenreKids,
	GenreVocaloid,
	GenreGame,
	GenreNamco,
	GenreVariety,
	GenreClassic,
}

var genreNames = map[Genre]string{
	GenrePops:     "pops",
	GenreAnime:    "anime",
	GenreKids:     "kids",
	GenreVocaloid: "vocaloid",
	GenreGame:     "game",
	GenreNamco:    "namco",
	GenreVariety:  "variety",
	GenreClassic:  "classic",
}

func (g Genre) String() string {
	name, ok := genreNames[g]
	if !ok {
		return fmt.Sprintf("Genre(%d)", int(g))
	}
	return name
}

// ID is the value of the genre query parameter on score_list.php.
func (g Genre) ID() int {
	return int(g)
}

func ParseGenre(name string) (Genre, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for g, n := range genreNames {
		if n == name {
			return g, nil
		}
	}
	return 0, fmt.Errorf("unknown genre %q", name)
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
	DifficultyOni    Difficulty = "oni"
	// hidden oni variant
	DifficultyUra Difficulty = "ura"
)

// Difficulties lists every difficulty in level order.
var Difficulties = []Difficulty{
	DifficultyEasy,
	DifficultyNormal,
	DifficultyHard,
	DifficultyOni,
	DifficultyUra,
}

// Level is the value of the level query parameter on score_detail.php, 0 if d is
// not a known difficulty.
func (d Difficulty) Level() int {
	for i, known := range Difficulties {
		if known == d {
			return i + 1
		}
	}
	return 0
}

// DifficultyFromLevel is the inverse of Level.
func DifficultyFromLevel(level int) (Difficulty, bool) {
	if level < 1 || level > len(Difficulties) {
		return "", false
	}
	return Difficulties[level-1], true
}

func ParseDifficulty(name string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(name)))
	if d == "oniura" || d == "oni_ura" {
		return DifficultyUra, nil
	}
	if d.Level() == 0 {
		return "", fmt.Errorf("unknown difficulty %q", name)
	}
	return d, nil
}
