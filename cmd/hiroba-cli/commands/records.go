package commands

import (
	"fmt"
	"strconv"
	"strings"

	"hiroba-client/lib/scrapers/hiroba/core"
	"hiroba-client/lib/scrapers/hiroba/parse"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	clearGenre      *string
	scoreDifficulty *string
	findThreshold   *float64
)

func init() {
	clearGenre = clearCmd.Flags().String("genre", "", "only fetch this genre (pops, anime, kids, vocaloid, game, namco, variety, classic)")
	scoreDifficulty = scoreCmd.Flags().String("difficulty", "", "only fetch this difficulty (easy, normal, hard, oni, ura)")
	findThreshold = findCmd.Flags().Float64("threshold", 0.8, "minimum similarity of a match, 0 to 1")

	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(danCmd)
	rootCmd.AddCommand(compeCmd)
	rootCmd.AddCommand(findCmd)
}

func clearRows(t table.Writer, records []parse.ClearRecord) {
	t.AppendHeader(difficultyHeader("Song", "Title"))
	for _, record := range records {
		cells := difficultyRow(func(d core.Difficulty) (string, bool) {
			clear, ok := record.Difficulty[d]
			if !ok {
				return "", false
			}
			return fmt.Sprintf("%s/%s", clear.Crown, clear.Badge), true
		})
		t.AppendRow(append(table.Row{record.SongNo, record.Title}, cells...))
	}
}

var clearCmd = &cobra.Command{
	Use:   "clear [--genre <genre>]",
	Short: "Prints the crown and badge of every played song.",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}

		var records []parse.ClearRecord
		if *clearGenre != "" {
			genre, err := core.ParseGenre(*clearGenre)
			if err != nil {
				return err
			}
			records, err = s.UpdateClearDataGenre(cmd.Context(), genre)
			if err != nil {
				return err
			}
		} else {
			records, err = s.UpdateClearData(cmd.Context())
			if err != nil {
				return err
			}
		}

		return render(cmd.OutOrStdout(), records, func(t table.Writer) {
			clearRows(t, records)
		})
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score <song no> [--difficulty <difficulty>]",
	Short: "Prints the best score of a song per difficulty.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}

		var record *parse.ScoreRecord
		if *scoreDifficulty != "" {
			difficulty, err := core.ParseDifficulty(*scoreDifficulty)
			if err != nil {
				return err
			}
			record, err = s.UpdateScoreDataDifficulty(cmd.Context(), args[0], difficulty)
			if err != nil {
				return err
			}
		} else {
			record, err = s.UpdateScoreData(cmd.Context(), args[0])
			if err != nil {
				return err
			}
		}
		if record == nil {
			return fmt.Errorf("song %s not found", args[0])
		}

		return render(cmd.OutOrStdout(), record, func(t table.Writer) {
			t.SetTitle(record.Title)
			t.AppendHeader(table.Row{"Difficulty", "Crown", "Badge", "Score", "Good", "Ok", "Bad", "Roll", "Max combo", "Plays"})
			for _, d := range core.Difficulties {
				score, ok := record.Difficulty[d]
				if !ok {
					continue
				}
				t.AppendRow(table.Row{
					d, score.Crown, score.Badge, score.Score,
					score.Good, score.Ok, score.Bad, score.Roll, score.MaxCombo,
					score.Count.Play,
				})
			}
		})
	},
}

func conditionText(conditions []parse.Condition) string {
	parts := make([]string, len(conditions))
	for i, c := range conditions {
		parts[i] = fmt.Sprintf("%s %v/%v", c.Name, c.Record, c.Criteria)
	}
	return strings.Join(parts, "\n")
}

var danCmd = &cobra.Command{
	Use:   "dan [dan no]",
	Short: "Prints the dan exam results, all of them when no exam is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}

		var exams []parse.DanExam
		if len(args) == 1 {
			danNo, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("dan no: %w", err)
			}
			exam, err := s.DanExam(cmd.Context(), danNo)
			if err != nil {
				return err
			}
			if exam != nil {
				exams = append(exams, *exam)
			}
		} else {
			exams, err = s.DanExams(cmd.Context())
			if err != nil {
				return err
			}
		}

		return render(cmd.OutOrStdout(), exams, func(t table.Writer) {
			t.AppendHeader(table.Row{"#", "Title", "Played", "Score", "Conditions"})
			for _, exam := range exams {
				t.AppendRow(table.Row{
					exam.DanNo, exam.Title, exam.Played, exam.BestScore.Score,
					conditionText(exam.BestScore.Conditions),
				})
			}
		})
	},
}

func scoreText(score *int) string {
	if score == nil {
		return "-"
	}
	return strconv.Itoa(*score)
}

var compeCmd = &cobra.Command{
	Use:   "compe <compe id>",
	Short: "Prints a competition's songs and ranking.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		compe, err := s.Competition(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if compe == nil {
			return fmt.Errorf("competition %s not found", args[0])
		}

		return render(cmd.OutOrStdout(), compe, func(t table.Writer) {
			t.SetTitle(fmt.Sprintf(
				"%s by %s, %s - %s, %d entries",
				compe.Detail.Title, compe.Detail.HostNickname,
				compe.Detail.StartDate.Format("2006/01/02 15:04"),
				compe.Detail.EndDate.Format("2006/01/02 15:04"),
				compe.Detail.TotalEntry,
			))
			header := table.Row{"Rank", "Nickname", "Taiko number"}
			for _, song := range compe.Detail.SongList {
				header = append(header, fmt.Sprintf("%s (%s)", song.SongName, song.Difficulty))
			}
			header = append(header, "Total")
			t.AppendHeader(header)

			for _, entry := range compe.Ranking {
				row := table.Row{entry.Rank, entry.NickName, entry.TaikoNo}
				for _, song := range entry.SongScores {
					row = append(row, scoreText(song.Score))
				}
				row = append(row, scoreText(entry.TotalScore))
				t.AppendRow(row)
			}
		})
	},
}

var findCmd = &cobra.Command{
	Use:   "find <title> [--threshold <0..1>]",
	Short: "Finds played songs by title.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		_, err = s.UpdateClearData(cmd.Context())
		if err != nil {
			return err
		}
		records := s.FindSongs(args[0], *findThreshold)
		return render(cmd.OutOrStdout(), records, func(t table.Writer) {
			clearRows(t, records)
		})
	},
}
