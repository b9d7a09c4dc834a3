// Package recordstore keeps dated copies of a card's clear and score records in
// sqlite, at most one per card per day (JST).
package recordstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"hiroba-client/lib/chrono"
	"hiroba-client/lib/scrapers/hiroba/core"
	"hiroba-client/lib/scrapers/hiroba/parse"

	_ "embed"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

// Open opens (or creates) the sqlite database at path and applies the schema.
func Open(path string) (*sql.DB, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	_, err = database.Exec("pragma foreign_keys = on")
	if err != nil {
		database.Close()
		return nil, err
	}
	_, err = database.Exec(Schema)
	if err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

type PushRequest struct {
	Time        time.Time
	TaikoNumber string
	ClearData   map[string]parse.ClearRecord
	ScoreData   map[string]parse.ScoreRecord
}

func startOfDay(t time.Time) time.Time {
	t = t.In(chrono.JST())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, chrono.JST())
}

// Push stores a snapshot, replacing any snapshot of the same card taken earlier
// on the same day.
func (s Store) Push(ctx context.Context, req PushRequest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	startOfToday := startOfDay(req.Time)
	startOfTomorrow := startOfToday.AddDate(0, 0, 1)

	_, err = tx.ExecContext(
		ctx,
		`delete from clear_record where snapshot_id in (
			select id from snapshot where taiko_number = ? and taken_at >= ? and taken_at < ?
		)`,
		req.TaikoNumber, startOfToday.Unix(), startOfTomorrow.Unix(),
	)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(
		ctx,
		`delete from score_record where snapshot_id in (
			select id from snapshot where taiko_number = ? and taken_at >= ? and taken_at < ?
		)`,
		req.TaikoNumber, startOfToday.Unix(), startOfTomorrow.Unix(),
	)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(
		ctx,
		"delete from snapshot where taiko_number = ? and taken_at >= ? and taken_at < ?",
		req.TaikoNumber, startOfToday.Unix(), startOfTomorrow.Unix(),
	)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(
		ctx,
		"insert into snapshot(taiko_number, taken_at) values (?, ?)",
		req.TaikoNumber, req.Time.Unix(),
	)
	if err != nil {
		return err
	}
	snapshotId, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for _, record := range req.ClearData {
		for difficulty, clear := range record.Difficulty {
			_, err = tx.ExecContext(
				ctx,
				"insert into clear_record(snapshot_id, song_no, title, difficulty, crown, badge) values (?, ?, ?, ?, ?, ?)",
				snapshotId, record.SongNo, record.Title, string(difficulty), clear.Crown.String(), clear.Badge.String(),
			)
			if err != nil {
				return err
			}
		}
	}
	for _, record := range req.ScoreData {
		for difficulty, score := range record.Difficulty {
			encoded, err := json.Marshal(score)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(
				ctx,
				"insert into score_record(snapshot_id, song_no, title, difficulty, score) values (?, ?, ?, ?, ?)",
				snapshotId, record.SongNo, record.Title, string(difficulty), string(encoded),
			)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

type Snapshot struct {
	Time      time.Time
	ClearData map[string]parse.ClearRecord
	ScoreData map[string]parse.ScoreRecord
}

// Latest returns the most recent snapshot of a card, nil if there is none.
func (s Store) Latest(ctx context.Context, taikoNumber string) (*Snapshot, error) {
	var id, takenAt int64
	err := s.db.QueryRowContext(
		ctx,
		"select id, taken_at from snapshot where taiko_number = ? order by taken_at desc, id desc limit 1",
		taikoNumber,
	).Scan(&id, &takenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := &Snapshot{
		Time:      time.Unix(takenAt, 0).In(chrono.JST()),
		ClearData: map[string]parse.ClearRecord{},
		ScoreData: map[string]parse.ScoreRecord{},
	}

	rows, err := s.db.QueryContext(
		ctx,
		"select song_no, title, difficulty, crown, badge from clear_record where snapshot_id = ?",
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var songNo, title, difficulty, crown, badge string
		err = rows.Scan(&songNo, &title, &difficulty, &crown, &badge)
		if err != nil {
			return nil, err
		}
		var clear parse.Clear
		err = clear.Crown.UnmarshalText([]byte(crown))
		if err != nil {
			slog.WarnContext(ctx, "failed to decode stored crown", "song_no", songNo, "err", err)
			continue
		}
		err = clear.Badge.UnmarshalText([]byte(badge))
		if err != nil {
			slog.WarnContext(ctx, "failed to decode stored badge", "song_no", songNo, "err", err)
			continue
		}
		parse.MergeClear(out.ClearData, parse.ClearRecord{
			Title:      title,
			SongNo:     songNo,
			Difficulty: map[core.Difficulty]parse.Clear{core.Difficulty(difficulty): clear},
		})
	}
	err = rows.Err()
	if err != nil {
		return nil, err
	}

	scoreRows, err := s.db.QueryContext(
		ctx,
		"select song_no, title, difficulty, score from score_record where snapshot_id = ?",
		id,
	)
	if err != nil {
		return nil, err
	}
	defer scoreRows.Close()
	for scoreRows.Next() {
		var songNo, title, difficulty, encoded string
		err = scoreRows.Scan(&songNo, &title, &difficulty, &encoded)
		if err != nil {
			return nil, err
		}
		var score parse.DifficultyScore
		err = json.Unmarshal([]byte(encoded), &score)
		if err != nil {
			slog.WarnContext(ctx, "failed to unmarshal stored score", "song_no", songNo, "err", err)
			continue
		}
		parse.MergeScore(out.ScoreData, parse.ScoreRecord{
			Title:      title,
			SongNo:     songNo,
			Difficulty: map[core.Difficulty]parse.DifficultyScore{core.Difficulty(difficulty): score},
		})
	}
	return out, scoreRows.Err()
}

type CrownPoint struct {
	Time  time.Time   `json:"time" yaml:"time"`
	Crown parse.Crown `json:"crown" yaml:"crown"`
	Badge parse.Badge `json:"badge" yaml:"badge"`
}

// CrownHistory is the clear state of one song difficulty across every stored
// snapshot of a card, oldest first. Snapshots where it was not played are skipped.
func (s Store) CrownHistory(ctx context.Context, taikoNumber, songNo string, difficulty core.Difficulty) ([]CrownPoint, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`select snapshot.taken_at, clear_record.crown, clear_record.badge
		from clear_record
		inner join snapshot on snapshot.id = clear_record.snapshot_id
		where snapshot.taiko_number = ? and clear_record.song_no = ? and clear_record.difficulty = ?`,
		taikoNumber, songNo, string(difficulty),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []CrownPoint
	for rows.Next() {
		var takenAt int64
		var crown, badge string
		err = rows.Scan(&takenAt, &crown, &badge)
		if err != nil {
			return nil, err
		}
		point := CrownPoint{Time: time.Unix(takenAt, 0).In(chrono.JST())}
		if point.Crown.UnmarshalText([]byte(crown)) != nil || point.Badge.UnmarshalText([]byte(badge)) != nil {
			slog.WarnContext(ctx, "failed to decode stored clear", "song_no", songNo, "crown", crown, "badge", badge)
			continue
		}
		points = append(points, point)
	}
	err = rows.Err()
	if err != nil {
		return nil, err
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})
	return points, nil
}
