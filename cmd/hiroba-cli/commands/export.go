package commands

import (
	"fmt"
	"log/slog"
	"time"

	"hiroba-client/lib/recordstore"
	"hiroba-client/lib/scrapers/hiroba/core"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	exportDb  *string
	historyDb *string
	exportAll *bool
)

func init() {
	exportDb = exportCmd.Flags().String("db", "records.db", "The sqlite database to write the snapshot to.")
	exportAll = exportCmd.Flags().Bool("scores", false, "Also fetch the score detail of every played song (one request per difficulty).")
	historyDb = historyCmd.Flags().String("db", "records.db", "The sqlite database written by export.")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(historyCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [--db <path/to/records.db>] [--scores]",
	Short: "Fetches the active card's records and stores them as today's snapshot.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		current := s.CurrentLogin()
		if current == nil {
			return fmt.Errorf("no active card: %w", core.ErrNotLogined)
		}

		t1 := time.Now()
		records, err := s.UpdateClearData(ctx)
		if err != nil {
			return err
		}
		if *exportAll {
			for _, record := range records {
				_, err = s.UpdateScoreData(ctx, record.SongNo)
				if err != nil {
					return err
				}
			}
		}
		slog.Info("fetched records", "songs", len(records), "seconds", time.Since(t1).Seconds())

		database, err := recordstore.Open(*exportDb)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer database.Close()

		snapshot := s.Snapshot()
		return recordstore.NewStore(database).Push(ctx, recordstore.PushRequest{
			Time:        snapshot.TakenAt,
			TaikoNumber: current.TaikoNumber,
			ClearData:   snapshot.ClearData,
			ScoreData:   snapshot.ScoreData,
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <taiko number> <song no> <difficulty> [--db <path/to/records.db>]",
	Short: "Prints how the crown of one song changed across exported snapshots.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		difficulty, err := core.ParseDifficulty(args[2])
		if err != nil {
			return err
		}

		database, err := recordstore.Open(*historyDb)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer database.Close()

		points, err := recordstore.NewStore(database).CrownHistory(cmd.Context(), args[0], args[1], difficulty)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), points, func(t table.Writer) {
			t.AppendHeader(table.Row{"Date", "Crown", "Badge"})
			for _, p := range points {
				t.AppendRow(table.Row{p.Time.Format("2006/01/02"), p.Crown, p.Badge})
			}
		})
	},
}
